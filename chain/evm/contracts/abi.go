package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ABI descriptors for the contracts the orchestrator reads from or encodes calls for. Only the
// functions actually used are described.
const (
	AuthABIJSON = `[
	{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"authority","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"setAuthority","stateMutability":"nonpayable","inputs":[{"name":"newAuthority","type":"address"}],"outputs":[]},
	{"type":"function","name":"transferOwnership","stateMutability":"nonpayable","inputs":[{"name":"newOwner","type":"address"}],"outputs":[]}
]`

	RolesAuthorityABIJSON = `[
	{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"setUserRole","stateMutability":"nonpayable","inputs":[{"name":"user","type":"address"},{"name":"role","type":"uint8"},{"name":"enabled","type":"bool"}],"outputs":[]},
	{"type":"function","name":"setRoleCapability","stateMutability":"nonpayable","inputs":[{"name":"role","type":"uint8"},{"name":"target","type":"address"},{"name":"functionSig","type":"bytes4"},{"name":"enabled","type":"bool"}],"outputs":[]},
	{"type":"function","name":"setPublicCapability","stateMutability":"nonpayable","inputs":[{"name":"target","type":"address"},{"name":"functionSig","type":"bytes4"},{"name":"enabled","type":"bool"}],"outputs":[]},
	{"type":"function","name":"doesUserHaveRole","stateMutability":"view","inputs":[{"name":"user","type":"address"},{"name":"role","type":"uint8"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"doesRoleHaveCapability","stateMutability":"view","inputs":[{"name":"role","type":"uint8"},{"name":"target","type":"address"},{"name":"functionSig","type":"bytes4"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"isCapabilityPublic","stateMutability":"view","inputs":[{"name":"target","type":"address"},{"name":"functionSig","type":"bytes4"}],"outputs":[{"name":"","type":"bool"}]}
]`

	SafeABIJSON = `[
	{"type":"function","name":"getOwners","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address[]"}]},
	{"type":"function","name":"getThreshold","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"nonce","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getTransactionHash","stateMutability":"view","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"},{"name":"operation","type":"uint8"},{"name":"safeTxGas","type":"uint256"},{"name":"baseGas","type":"uint256"},{"name":"gasPrice","type":"uint256"},{"name":"gasToken","type":"address"},{"name":"refundReceiver","type":"address"},{"name":"_nonce","type":"uint256"}],"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"approvedHashes","stateMutability":"view","inputs":[{"name":"","type":"address"},{"name":"","type":"bytes32"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"approveHash","stateMutability":"nonpayable","inputs":[{"name":"hashToApprove","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"execTransaction","stateMutability":"payable","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"},{"name":"operation","type":"uint8"},{"name":"safeTxGas","type":"uint256"},{"name":"baseGas","type":"uint256"},{"name":"gasPrice","type":"uint256"},{"name":"gasToken","type":"address"},{"name":"refundReceiver","type":"address"},{"name":"signatures","type":"bytes"}],"outputs":[{"name":"success","type":"bool"}]},
	{"type":"function","name":"execTransactionFromModule","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"},{"name":"operation","type":"uint8"}],"outputs":[{"name":"success","type":"bool"}]}
]`

	TimelockABIJSON = `[
	{"type":"function","name":"getMinDelay","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"hashOperationBatch","stateMutability":"pure","inputs":[{"name":"targets","type":"address[]"},{"name":"values","type":"uint256[]"},{"name":"payloads","type":"bytes[]"},{"name":"predecessor","type":"bytes32"},{"name":"salt","type":"bytes32"}],"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"isOperationReady","stateMutability":"view","inputs":[{"name":"id","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"isOperationPending","stateMutability":"view","inputs":[{"name":"id","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"scheduleBatch","stateMutability":"nonpayable","inputs":[{"name":"targets","type":"address[]"},{"name":"values","type":"uint256[]"},{"name":"payloads","type":"bytes[]"},{"name":"predecessor","type":"bytes32"},{"name":"salt","type":"bytes32"},{"name":"delay","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"executeBatch","stateMutability":"payable","inputs":[{"name":"targets","type":"address[]"},{"name":"values","type":"uint256[]"},{"name":"payloads","type":"bytes[]"},{"name":"predecessor","type":"bytes32"},{"name":"salt","type":"bytes32"}],"outputs":[]}
]`

	BoringVaultABIJSON = `[
	{"type":"function","name":"hook","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"authority","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"setBeforeTransferHook","stateMutability":"nonpayable","inputs":[{"name":"_hook","type":"address"}],"outputs":[]}
]`

	TellerABIJSON = `[
	{"type":"function","name":"accountant","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"assetData","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[{"name":"allowDeposits","type":"bool"},{"name":"allowWithdraws","type":"bool"},{"name":"sharePremium","type":"uint16"}]},
	{"type":"function","name":"updateAssetData","stateMutability":"nonpayable","inputs":[{"name":"asset","type":"address"},{"name":"allowDeposits","type":"bool"},{"name":"allowWithdraws","type":"bool"},{"name":"sharePremium","type":"uint16"}],"outputs":[]},
	{"type":"function","name":"shareLockPeriod","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint64"}]},
	{"type":"function","name":"setShareLockPeriod","stateMutability":"nonpayable","inputs":[{"name":"_shareLockPeriod","type":"uint64"}],"outputs":[]},
	{"type":"function","name":"isPaused","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"pause","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"unpause","stateMutability":"nonpayable","inputs":[],"outputs":[]}
]`

	AccountantABIJSON = `[
	{"type":"function","name":"accountantState","stateMutability":"view","inputs":[],"outputs":[{"name":"payoutAddress","type":"address"},{"name":"highwaterMark","type":"uint96"},{"name":"feesOwedInBase","type":"uint128"},{"name":"totalSharesLastUpdate","type":"uint128"},{"name":"exchangeRate","type":"uint96"},{"name":"allowedExchangeRateChangeUpper","type":"uint16"},{"name":"allowedExchangeRateChangeLower","type":"uint16"},{"name":"lastUpdateTimestamp","type":"uint64"},{"name":"isPaused","type":"bool"},{"name":"minimumUpdateDelayInSeconds","type":"uint24"},{"name":"platformFee","type":"uint16"},{"name":"performanceFee","type":"uint16"}]},
	{"type":"function","name":"updatePlatformFee","stateMutability":"nonpayable","inputs":[{"name":"platformFee","type":"uint16"}],"outputs":[]},
	{"type":"function","name":"updatePayoutAddress","stateMutability":"nonpayable","inputs":[{"name":"payoutAddress","type":"address"}],"outputs":[]}
]`

	ManagerABIJSON = `[
	{"type":"function","name":"manageRoot","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"setManageRoot","stateMutability":"nonpayable","inputs":[{"name":"strategist","type":"address"},{"name":"_manageRoot","type":"bytes32"}],"outputs":[]}
]`

	MultiSendABIJSON = `[
	{"type":"function","name":"multiSend","stateMutability":"payable","inputs":[{"name":"transactions","type":"bytes"}],"outputs":[]}
]`

	BundlerABIJSON = `[
	{"type":"function","name":"bundleTxs","stateMutability":"payable","inputs":[{"name":"txs","type":"tuple[]","components":[{"name":"target","type":"address"},{"name":"data","type":"bytes"},{"name":"value","type":"uint256"}]}],"outputs":[]}
]`
)

var (
	AuthABI           = MustParseABI(AuthABIJSON)
	RolesAuthorityABI = MustParseABI(RolesAuthorityABIJSON)
	SafeABI           = MustParseABI(SafeABIJSON)
	TimelockABI       = MustParseABI(TimelockABIJSON)
	BoringVaultABI    = MustParseABI(BoringVaultABIJSON)
	TellerABI         = MustParseABI(TellerABIJSON)
	AccountantABI     = MustParseABI(AccountantABIJSON)
	ManagerABI        = MustParseABI(ManagerABIJSON)
	MultiSendABI      = MustParseABI(MultiSendABIJSON)
	BundlerABI        = MustParseABI(BundlerABIJSON)
)

// MustParseABI parses an ABI JSON descriptor and panics on failure. Only used for the
// descriptors compiled into this package.
func MustParseABI(s string) *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}

	return &parsed
}
