package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Abcd12!@", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "Abcd12!@"))
	assert.False(t, VerifyPassword(hash, "wrong"))
}

func TestCheckPasswordPolicy(t *testing.T) {
	cases := map[string]bool{
		"Abcd12!@": true,
		"aB3$xy":   true,
		"aB3$x":    false, // too short
		"abcd12!@": false, // no upper
		"ABCD12!@": false, // no lower
		"Abcdef!@": false, // no digit
		"Abcd1234": false, // no symbol
		"":         false,
		"Ää1!":     false, // four characters, six bytes
		"Ääb1!c":   true,
	}
	long := "Aa1!" + strings.Repeat("x", 68)
	cases[long] = true
	cases[long+"x"] = false // 73 bytes, past bcrypt's limit
	for pw, ok := range cases {
		err := CheckPasswordPolicy(pw)
		if ok {
			assert.NoError(t, err, pw)
		} else {
			assert.ErrorIs(t, err, ErrWeakPassword, pw)
		}
	}
}

func TestPolicyLimitMatchesBcrypt(t *testing.T) {
	longest := "Aa1!" + strings.Repeat("x", MaxPasswordBytes-4)
	require.NoError(t, CheckPasswordPolicy(longest))
	_, err := HashPassword(longest, bcrypt.MinCost)
	require.NoError(t, err)

	tooLong := longest + "x"
	assert.ErrorIs(t, CheckPasswordPolicy(tooLong), ErrWeakPassword)
	_, err = HashPassword(tooLong, bcrypt.MinCost)
	assert.ErrorIs(t, err, bcrypt.ErrPasswordTooLong)
}
