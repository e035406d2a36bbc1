package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret-key-for-testing")

func TestGenerateAndValidateServiceToken(t *testing.T) {
	company := int64(7)
	token, exp, err := GenerateServiceToken(testSecret, "crm", []Role{RoleService}, &company, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := ValidateToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "crm", claims.Subject)
	assert.Equal(t, []Role{RoleService}, claims.Roles)
	require.NotNil(t, claims.CompanyID)
	assert.Equal(t, company, *claims.CompanyID)
	assert.True(t, claims.HasRole(RoleService))
	assert.False(t, claims.HasRole(RoleViewer))
}

func TestGenerateServiceToken_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		secret  []byte
		subject string
		roles   []Role
	}{
		{"empty secret", nil, "crm", []Role{RoleService}},
		{"empty subject", testSecret, "", []Role{RoleService}},
		{"unknown role", testSecret, "crm", []Role{"root"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := GenerateServiceToken(tt.secret, tt.subject, tt.roles, nil, time.Hour)
			assert.Error(t, err)
		})
	}
}

func TestValidateToken_Failures(t *testing.T) {
	expired, _, err := GenerateServiceToken(testSecret, "crm", []Role{RoleService}, nil, -time.Minute)
	require.NoError(t, err)

	valid, _, err := GenerateServiceToken(testSecret, "crm", []Role{RoleService}, nil, time.Hour)
	require.NoError(t, err)

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Roles: []Role{RoleAdmin},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(testSecret)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: tokenIssuer},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret []byte
	}{
		{"expired", expired, testSecret},
		{"wrong secret", valid, []byte("other-secret")},
		{"foreign issuer", foreign, testSecret},
		{"alg none", unsigned, testSecret},
		{"garbage", "not-a-token", testSecret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateToken(tt.token, tt.secret)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestRole_HasPermission(t *testing.T) {
	tests := []struct {
		have, want Role
		ok         bool
	}{
		{RoleAdmin, RoleViewer, true},
		{RoleAdmin, RoleService, true},
		{RoleViewer, RoleViewer, true},
		{RoleViewer, RoleService, false},
		{RoleService, RoleViewer, false},
		{RoleService, RoleService, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.have)+"->"+string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.have.HasPermission(tt.want))
		})
	}

	assert.True(t, HasAny([]Role{RoleViewer}, RoleService, RoleViewer))
	assert.False(t, HasAny(nil, RoleViewer))
	assert.False(t, Role("root").IsValid())
}
