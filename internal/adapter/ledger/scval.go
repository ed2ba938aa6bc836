package ledger

import (
	"fmt"
	"math/big"
	"sort"

	"vinefi-traceability/internal/core/domain"

	"github.com/stellar/go/strkey"
	"github.com/stellar/go/xdr"
)

// ScVal construction helpers. Contract struct arguments travel as ScMap
// with symbol keys in ascending order; Option<T> travels as a vector of
// zero or one elements.

func symbolVal(s string) (xdr.ScVal, error) {
	return xdr.NewScVal(xdr.ScValTypeScvSymbol, xdr.ScSymbol(s))
}

func stringVal(s string) (xdr.ScVal, error) {
	return xdr.NewScVal(xdr.ScValTypeScvString, xdr.ScString(s))
}

func u32Val(v uint32) (xdr.ScVal, error) {
	return xdr.NewScVal(xdr.ScValTypeScvU32, xdr.Uint32(v))
}

func i128Val(v *big.Int) (xdr.ScVal, error) {
	parts, err := bigIntToI128(v)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return xdr.NewScVal(xdr.ScValTypeScvI128, parts)
}

// addressVal encodes a G... account or C... contract strkey as an ScVal
// address.
func addressVal(address string) (xdr.ScVal, error) {
	sa, err := scAddress(address)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return xdr.NewScVal(xdr.ScValTypeScvAddress, sa)
}

func scAddress(address string) (xdr.ScAddress, error) {
	switch {
	case strkey.IsValidEd25519PublicKey(address):
		var accountID xdr.AccountId
		if err := accountID.SetAddress(address); err != nil {
			return xdr.ScAddress{}, fmt.Errorf("parse account address: %w", err)
		}
		return xdr.ScAddress{
			Type:      xdr.ScAddressTypeScAddressTypeAccount,
			AccountId: &accountID,
		}, nil
	case strkey.IsValidContractAddress(address):
		raw, err := strkey.Decode(strkey.VersionByteContract, address)
		if err != nil {
			return xdr.ScAddress{}, fmt.Errorf("parse contract address: %w", err)
		}
		var contractID xdr.ContractId
		copy(contractID[:], raw)
		return xdr.ScAddress{
			Type:       xdr.ScAddressTypeScAddressTypeContract,
			ContractId: &contractID,
		}, nil
	default:
		return xdr.ScAddress{}, fmt.Errorf("invalid address %q", address)
	}
}

// scAddressString renders an ScAddress back as a strkey.
func scAddressString(sa xdr.ScAddress) (string, error) {
	switch sa.Type {
	case xdr.ScAddressTypeScAddressTypeAccount:
		return sa.AccountId.Address(), nil
	case xdr.ScAddressTypeScAddressTypeContract:
		return strkey.Encode(strkey.VersionByteContract, sa.ContractId[:])
	default:
		return "", fmt.Errorf("unsupported address type %v", sa.Type)
	}
}

// optionVal wraps an ScVal in the vector encoding of Option<T>: empty for
// None, single element for Some.
func optionVal(inner *xdr.ScVal) (xdr.ScVal, error) {
	vec := xdr.ScVec{}
	if inner != nil {
		vec = append(vec, *inner)
	}
	return xdr.NewScVal(xdr.ScValTypeScvVec, &vec)
}

// optionStringVal is optionVal over an optional string.
func optionStringVal(s *string) (xdr.ScVal, error) {
	if s == nil {
		return optionVal(nil)
	}
	inner, err := stringVal(*s)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return optionVal(&inner)
}

// mapVal builds an ScMap from symbol-keyed entries, sorted by key as the
// contract host requires.
func mapVal(entries map[string]xdr.ScVal) (xdr.ScVal, error) {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	m := make(xdr.ScMap, 0, len(entries))
	for _, k := range keys {
		key, err := symbolVal(k)
		if err != nil {
			return xdr.ScVal{}, err
		}
		m = append(m, xdr.ScMapEntry{Key: key, Val: entries[k]})
	}
	return xdr.NewScVal(xdr.ScValTypeScvMap, &m)
}

// wineMetadataVal encodes the typed lot metadata as the contract's struct
// map. Extra fields stay off-chain.
func wineMetadataVal(md domain.WineLotMetadata) (xdr.ScVal, error) {
	entries := make(map[string]xdr.ScVal, 9)

	strFields := map[string]string{
		"lot_id":      md.LotID,
		"winery_name": md.WineryName,
		"region":      md.Region,
		"country":     md.Country,
		"varietal":    md.Varietal,
		"token_code":  md.TokenCode,
	}
	for k, v := range strFields {
		val, err := stringVal(v)
		if err != nil {
			return xdr.ScVal{}, err
		}
		entries[k] = val
	}

	vintage, err := u32Val(uint32(md.Vintage))
	if err != nil {
		return xdr.ScVal{}, err
	}
	entries["vintage"] = vintage

	bottles, err := u32Val(uint32(md.BottleCount))
	if err != nil {
		return xdr.ScVal{}, err
	}
	entries["bottle_count"] = bottles

	desc, err := optionStringVal(md.Description)
	if err != nil {
		return xdr.ScVal{}, err
	}
	entries["description"] = desc

	return mapVal(entries)
}
