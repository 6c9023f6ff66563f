package poolstore

import (
	"encoding/binary"
	"fmt"

	"github.com/poollabs/goamm/internal/core/asset"
	"github.com/poollabs/goamm/internal/core/ident"
	"github.com/poollabs/goamm/internal/core/token"
)

// Value layouts are fixed-width big-endian with a leading version byte,
// matching the pool record codec.
const (
	assetRecordVersion   = 1
	accountRecordVersion = 1
)

func encodeAssetRecord(rec token.AssetRecord) []byte {
	d := rec.Descriptor
	size := 1 + 32 + 1 + 1 + len(d.Extensions)*2 + 1 + 2 + 8 + 8
	data := make([]byte, 0, size)

	data = append(data, assetRecordVersion)
	data = append(data, d.Identity[:]...)
	data = append(data, d.Decimals)
	data = append(data, byte(len(d.Extensions)))
	for _, ext := range d.Extensions {
		data = binary.BigEndian.AppendUint16(data, uint16(ext))
	}
	if d.TransferFee != nil {
		data = append(data, 1)
		data = binary.BigEndian.AppendUint16(data, d.TransferFee.BasisPoints)
		data = binary.BigEndian.AppendUint64(data, d.TransferFee.MaximumFee)
	} else {
		data = append(data, 0)
	}
	data = binary.BigEndian.AppendUint64(data, rec.Supply)
	return data
}

func decodeAssetRecord(data []byte) (token.AssetRecord, error) {
	var rec token.AssetRecord
	if len(data) < 1+32+1+1 {
		return rec, fmt.Errorf("poolstore: asset record too short: %d bytes", len(data))
	}
	if data[0] != assetRecordVersion {
		return rec, fmt.Errorf("poolstore: unknown asset record version %d", data[0])
	}
	offset := 1

	copy(rec.Descriptor.Identity[:], data[offset:offset+32])
	offset += 32
	rec.Descriptor.Decimals = data[offset]
	offset++

	extCount := int(data[offset])
	offset++
	if len(data) < offset+extCount*2+1 {
		return rec, fmt.Errorf("poolstore: asset record truncated at extensions")
	}
	if extCount > 0 {
		rec.Descriptor.Extensions = make([]asset.ExtensionFlag, extCount)
		for i := range rec.Descriptor.Extensions {
			rec.Descriptor.Extensions[i] = asset.ExtensionFlag(binary.BigEndian.Uint16(data[offset:]))
			offset += 2
		}
	}

	hasFee := data[offset] != 0
	offset++
	if hasFee {
		if len(data) < offset+2+8+8 {
			return rec, fmt.Errorf("poolstore: asset record truncated at fee config")
		}
		rec.Descriptor.TransferFee = &asset.TransferFeeConfig{
			BasisPoints: binary.BigEndian.Uint16(data[offset:]),
			MaximumFee:  binary.BigEndian.Uint64(data[offset+2:]),
		}
		offset += 10
	}

	if len(data) < offset+8 {
		return rec, fmt.Errorf("poolstore: asset record truncated at supply")
	}
	rec.Supply = binary.BigEndian.Uint64(data[offset:])
	return rec, nil
}

func encodeAccountValue(a token.Account) []byte {
	data := make([]byte, 0, 1+32+8)
	data = append(data, accountRecordVersion)
	data = append(data, a.Owner[:]...)
	data = binary.BigEndian.AppendUint64(data, a.Balance)
	return data
}

func decodeAccountValue(assetID, holder ident.Identity, data []byte) (token.Account, error) {
	var a token.Account
	if len(data) != 1+32+8 {
		return a, fmt.Errorf("poolstore: account record has %d bytes", len(data))
	}
	if data[0] != accountRecordVersion {
		return a, fmt.Errorf("poolstore: unknown account record version %d", data[0])
	}
	a.Asset = assetID
	a.Holder = holder
	copy(a.Owner[:], data[1:33])
	a.Balance = binary.BigEndian.Uint64(data[33:])
	return a, nil
}
