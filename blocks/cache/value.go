package cache

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Value is a fact stored in the cache. Implementations are comparable value types so two
// values are equal iff they are ==.
type Value interface {
	fmt.Stringer
	isValue()
}

type (
	Address common.Address
	U32     uint32
	U8      uint8
	String  string
	Bool    bool
)

func (Address) isValue() {}
func (U32) isValue()     {}
func (U8) isValue()      {}
func (String) isValue()  {}
func (Bool) isValue()    {}

func (v Address) String() string { return common.Address(v).Hex() }
func (v U32) String() string     { return fmt.Sprintf("%d", uint32(v)) }
func (v U8) String() string      { return fmt.Sprintf("%d", uint8(v)) }
func (v String) String() string  { return fmt.Sprintf("%q", string(v)) }
func (v Bool) String() string    { return fmt.Sprintf("%t", bool(v)) }

// AddressValue wraps addr as a Value.
func AddressValue(addr common.Address) Value { return Address(addr) }
