package dto

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/assert"
)

const contractAddr = "CA7QYNF7SOWQ3GLR2BGMZEHXAVIRZA4KVWLTJJFC7MGXUA74P7UJUWDA"

func TestSanitizeStruct(t *testing.T) {
	notes := "  <script>alert(1)</script>  "
	req := LotStatusUpdateRequest{
		Status:      "  shipped ",
		HandlerName: "Acme <Logistics>",
		Notes:       &notes,
	}
	SanitizeStruct(&req)

	assert.Equal(t, "shipped", req.Status)
	assert.Equal(t, "Acme &lt;Logistics&gt;", req.HandlerName)
	assert.Equal(t, "&lt;script&gt;alert(1)&lt;/script&gt;", *req.Notes)
}

func TestSanitizeStructNested(t *testing.T) {
	req := CreateTokenRequest{
		Name:     " Lot One ",
		Symbol:   "CHT24",
		Metadata: WineMetadata{LotID: " LOT-1 ", WineryName: " Chateau "},
	}
	SanitizeStruct(&req)

	assert.Equal(t, "Lot One", req.Name)
	assert.Equal(t, "LOT-1", req.Metadata.LotID)
	assert.Equal(t, "Chateau", req.Metadata.WineryName)
}

func TestSanitizeStructNonPointer(t *testing.T) {
	req := MintRequest{Amount: " 5 "}
	SanitizeStruct(req) // no-op, must not panic
	assert.Equal(t, " 5 ", req.Amount)
}

func TestStellarValidators(t *testing.T) {
	account := keypair.MustRandom().Address()

	assert.True(t, isValid("stellar_account", account))
	assert.False(t, isValid("stellar_account", contractAddr))
	assert.False(t, isValid("stellar_account", "garbage"))

	assert.True(t, isValid("stellar_contract", contractAddr))
	assert.False(t, isValid("stellar_contract", account))

	assert.True(t, isValid("stellar_address", account))
	assert.True(t, isValid("stellar_address", contractAddr))
	assert.False(t, isValid("stellar_address", ""))
}

func isValid(tag, value string) bool {
	v := binding.Validator.Engine().(*validator.Validate)
	return v.Var(value, tag) == nil
}
