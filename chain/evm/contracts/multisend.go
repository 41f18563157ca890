package contracts

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var ErrMalformedMultiSend = errors.New("malformed multisend payload")

// MultiSendTx is a single entry of a packed multiSend payload.
type MultiSendTx struct {
	Operation uint8
	To        common.Address
	Value     *big.Int
	Data      []byte
}

const multiSendHeaderLen = 1 + common.AddressLength + 32 + 32

// PackMultiSend packs txs as op:1 ‖ to:20 ‖ value:32 ‖ data_len:32 ‖ data for each entry.
func PackMultiSend(txs []MultiSendTx) []byte {
	size := 0
	for _, tx := range txs {
		size += multiSendHeaderLen + len(tx.Data)
	}

	out := make([]byte, 0, size)
	for _, tx := range txs {
		value := tx.Value
		if value == nil {
			value = new(big.Int)
		}

		out = append(out, tx.Operation)
		out = append(out, tx.To.Bytes()...)
		out = append(out, common.LeftPadBytes(value.Bytes(), 32)...)
		out = append(out, common.LeftPadBytes(new(big.Int).SetInt64(int64(len(tx.Data))).Bytes(), 32)...)
		out = append(out, tx.Data...)
	}

	return out
}

// UnpackMultiSend is the inverse of PackMultiSend.
func UnpackMultiSend(packed []byte) ([]MultiSendTx, error) {
	var txs []MultiSendTx

	for i := 0; i < len(packed); {
		if len(packed)-i < multiSendHeaderLen {
			return nil, fmt.Errorf("%w: truncated header at offset %d", ErrMalformedMultiSend, i)
		}

		tx := MultiSendTx{Operation: packed[i]}
		i++
		tx.To = common.BytesToAddress(packed[i : i+common.AddressLength])
		i += common.AddressLength
		tx.Value = new(big.Int).SetBytes(packed[i : i+32])
		i += 32

		lenWord := packed[i : i+32]
		i += 32
		// lengths beyond 8 bytes cannot fit the remaining payload anyway
		for _, b := range lenWord[:24] {
			if b != 0 {
				return nil, fmt.Errorf("%w: data length overflow at offset %d", ErrMalformedMultiSend, i)
			}
		}
		dataLen := binary.BigEndian.Uint64(lenWord[24:])
		if dataLen > uint64(len(packed)-i) {
			return nil, fmt.Errorf("%w: data length %d exceeds payload", ErrMalformedMultiSend, dataLen)
		}

		tx.Data = common.CopyBytes(packed[i : i+int(dataLen)])
		i += int(dataLen)
		txs = append(txs, tx)
	}

	return txs, nil
}
