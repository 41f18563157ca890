package actions

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// SenderKind is the privilege level an action is sent from. The numeric order is the folding
// order: outermost envelopes first.
type SenderKind uint8

const (
	SenderTimelock SenderKind = iota
	SenderMultisig
	SenderSigner
	SenderEOA
)

func (k SenderKind) String() string {
	switch k {
	case SenderTimelock:
		return "Timelock"
	case SenderMultisig:
		return "Multisig"
	case SenderSigner:
		return "Signer"
	case SenderEOA:
		return "EOA"
	default:
		return fmt.Sprintf("SenderKind(%d)", uint8(k))
	}
}

// SenderType is the logical originator of an action.
type SenderType struct {
	Kind    SenderKind
	Address common.Address
}

// EOA is an action broadcast directly by addr.
func EOA(addr common.Address) SenderType { return SenderType{Kind: SenderEOA, Address: addr} }

// Signer is an action a signer of the multisig at addr approves or executes.
func Signer(addr common.Address) SenderType { return SenderType{Kind: SenderSigner, Address: addr} }

// Multisig is an action executed by the multisig at addr.
func Multisig(addr common.Address) SenderType { return SenderType{Kind: SenderMultisig, Address: addr} }

// Timelock is an action executed by the timelock at addr.
func Timelock(addr common.Address) SenderType { return SenderType{Kind: SenderTimelock, Address: addr} }

// Compare orders senders Timelock < Multisig < Signer < EOA, then by address.
func Compare(a, b SenderType) int {
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}

	return bytes.Compare(a.Address.Bytes(), b.Address.Bytes())
}

func (s SenderType) String() string {
	return fmt.Sprintf("%s(%s)", s.Kind, s.Address.Hex())
}

func (s SenderType) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}
