package actions

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/smartcontractkit/vault-admin/chain/evm/contracts"
)

var _ Action = (*Call)(nil)

// Call is a leaf action: one encoded call to one contract.
type Call struct {
	target    common.Address
	value     *big.Int
	data      []byte
	priority  uint32
	sender    SenderType
	operation uint8
	method    string
	args      map[string]any
}

// CallOption configures a Call.
type CallOption func(*Call)

// WithValue sets the wei value sent along with the call.
func WithValue(v *big.Int) CallOption {
	return func(c *Call) { c.value = valueOrZero(v) }
}

// WithPriority overrides the default leaf priority.
func WithPriority(p uint32) CallOption {
	return func(c *Call) { c.priority = p }
}

// WithOperation sets the call operation, OperationCall or OperationDelegateCall.
func WithOperation(op uint8) CallOption {
	return func(c *Call) { c.operation = op }
}

// NewCall builds a leaf action from already encoded calldata. method and args only feed the
// description.
func NewCall(target common.Address, data []byte, sender SenderType, method string, args map[string]any, opts ...CallOption) *Call {
	c := &Call{
		target:   target,
		value:    new(big.Int),
		data:     common.CopyBytes(data),
		priority: DefaultLeafPriority,
		sender:   sender,
		method:   method,
		args:     args,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Call) Target() common.Address { return c.target }
func (c *Call) Value() *big.Int        { return new(big.Int).Set(c.value) }
func (c *Call) Data() []byte           { return common.CopyBytes(c.data) }
func (c *Call) Priority() uint32       { return c.priority }
func (c *Call) Sender() SenderType     { return c.sender }
func (c *Call) Operation() uint8       { return c.operation }

// Method returns the name of the called function.
func (c *Call) Method() string { return c.method }

func (c *Call) Describe() json.RawMessage {
	return mustJSON(struct {
		Type   string         `json:"type"`
		Method string         `json:"method"`
		Target common.Address `json:"target"`
		Sender SenderType     `json:"sender"`
		Value  string         `json:"value"`
		Args   map[string]any `json:"args,omitempty"`
		Data   hexutil.Bytes  `json:"data"`
	}{
		Type:   "call",
		Method: c.method,
		Target: c.target,
		Sender: c.sender,
		Value:  c.value.String(),
		Args:   c.args,
		Data:   c.data,
	})
}

func newEncodedCall(a *abi.ABI, target common.Address, sender SenderType, method string, args map[string]any, values ...any) (*Call, error) {
	data, err := contracts.Pack(a, method, values...)
	if err != nil {
		return nil, err
	}

	return NewCall(target, data, sender, method, args), nil
}

// NewSetUserRole grants or revokes role for user on a RolesAuthority.
func NewSetUserRole(rolesAuthority, user common.Address, role uint8, enabled bool, sender SenderType) (*Call, error) {
	return newEncodedCall(contracts.RolesAuthorityABI, rolesAuthority, sender, "setUserRole",
		map[string]any{"user": user, "role": role, "enabled": enabled},
		user, role, enabled)
}

// NewSetRoleCapability allows or disallows role to call selector on target.
func NewSetRoleCapability(rolesAuthority common.Address, role uint8, target common.Address, selector [4]byte, enabled bool, sender SenderType) (*Call, error) {
	return newEncodedCall(contracts.RolesAuthorityABI, rolesAuthority, sender, "setRoleCapability",
		map[string]any{"role": role, "target": target, "selector": hexutil.Bytes(selector[:]), "enabled": enabled},
		role, target, selector, enabled)
}

// NewSetPublicCapability opens or closes selector on target to everyone.
func NewSetPublicCapability(rolesAuthority, target common.Address, selector [4]byte, enabled bool, sender SenderType) (*Call, error) {
	return newEncodedCall(contracts.RolesAuthorityABI, rolesAuthority, sender, "setPublicCapability",
		map[string]any{"target": target, "selector": hexutil.Bytes(selector[:]), "enabled": enabled},
		target, selector, enabled)
}

// NewSetManageRoot sets the merkle root a strategist may manage the vault with.
func NewSetManageRoot(manager, strategist common.Address, root common.Hash, sender SenderType) (*Call, error) {
	return newEncodedCall(contracts.ManagerABI, manager, sender, "setManageRoot",
		map[string]any{"strategist": strategist, "root": root},
		strategist, [32]byte(root))
}

// NewUpdateAssetData configures deposits and withdrawals of asset on a teller.
func NewUpdateAssetData(teller, asset common.Address, allowDeposits, allowWithdraws bool, sharePremium uint16, sender SenderType) (*Call, error) {
	return newEncodedCall(contracts.TellerABI, teller, sender, "updateAssetData",
		map[string]any{"asset": asset, "allow_deposits": allowDeposits, "allow_withdraws": allowWithdraws, "share_premium": sharePremium},
		asset, allowDeposits, allowWithdraws, sharePremium)
}

// NewSetShareLockPeriod sets the share lock period of a teller, in seconds.
func NewSetShareLockPeriod(teller common.Address, period uint64, sender SenderType) (*Call, error) {
	return newEncodedCall(contracts.TellerABI, teller, sender, "setShareLockPeriod",
		map[string]any{"share_lock_period": period},
		period)
}

// NewPause pauses a teller.
func NewPause(teller common.Address, sender SenderType) (*Call, error) {
	return newEncodedCall(contracts.TellerABI, teller, sender, "pause", nil)
}

// NewUnpause unpauses a teller.
func NewUnpause(teller common.Address, sender SenderType) (*Call, error) {
	return newEncodedCall(contracts.TellerABI, teller, sender, "unpause", nil)
}

// NewUpdatePlatformFee sets the platform fee of an accountant, in basis points.
func NewUpdatePlatformFee(accountant common.Address, fee uint16, sender SenderType) (*Call, error) {
	return newEncodedCall(contracts.AccountantABI, accountant, sender, "updatePlatformFee",
		map[string]any{"platform_fee": fee},
		fee)
}

// NewUpdatePayoutAddress sets where an accountant pays fees out to.
func NewUpdatePayoutAddress(accountant, payout common.Address, sender SenderType) (*Call, error) {
	return newEncodedCall(contracts.AccountantABI, accountant, sender, "updatePayoutAddress",
		map[string]any{"payout_address": payout},
		payout)
}

// NewSetBeforeTransferHook sets the share transfer hook of a vault.
func NewSetBeforeTransferHook(vault, hook common.Address, sender SenderType) (*Call, error) {
	return newEncodedCall(contracts.BoringVaultABI, vault, sender, "setBeforeTransferHook",
		map[string]any{"hook": hook},
		hook)
}

// NewSetAuthority points an Auth contract at a new authority.
func NewSetAuthority(target, authority common.Address, sender SenderType) (*Call, error) {
	return newEncodedCall(contracts.AuthABI, target, sender, "setAuthority",
		map[string]any{"authority": authority},
		authority)
}

// NewTransferOwnership transfers ownership of an Auth contract.
func NewTransferOwnership(target, owner common.Address, sender SenderType) (*Call, error) {
	return newEncodedCall(contracts.AuthABI, target, sender, "transferOwnership",
		map[string]any{"owner": owner},
		owner)
}
