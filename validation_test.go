package auth_test

import (
	"testing"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/kachraalert/kachra-auth"
)

func TestValidatePhoneNumber(t *testing.T) {
	rule := auth.ValidatePhoneNumber("NP")

	assert.NoError(t, rule("+9779841000000"))
	assert.NoError(t, rule("9841000000"))
	assert.NoError(t, rule(""))

	assert.Error(t, rule("not-a-phone"))
	assert.Error(t, rule("123"))
}

func TestValidateStringEquals(t *testing.T) {
	rule := auth.ValidateStringEquals("sekrit-password")

	assert.NoError(t, rule("sekrit-password"))
	assert.Error(t, rule("other"))
	assert.Error(t, rule(42))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+9779841000000", auth.NormalizePhone("9841000000", "NP"))
	assert.Equal(t, "+9779841000000", auth.NormalizePhone("+9779841000000", "NP"))
	assert.Equal(t, "garble", auth.NormalizePhone("garble", "NP"))
	assert.Equal(t, "", auth.NormalizePhone("", "NP"))
}

func TestFormatValidationErrorToMap(t *testing.T) {
	payload := struct {
		Email string
	}{}
	err := validation.Errors{
		"email": validation.Validate(payload.Email, validation.Required),
	}.Filter()
	require.Error(t, err)

	out := auth.FormatValidationErrorToMap(err)
	assert.Equal(t, "cannot be blank", out["email"])

	assert.Empty(t, auth.FormatValidationErrorToMap(nil))

	out = auth.FormatValidationErrorToMap(assert.AnError)
	assert.Contains(t, out, "payload")
}
