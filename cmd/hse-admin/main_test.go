package main

import (
	"bytes"
	"context"
	"database/sql"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/hse-api/internal/models"
	"github.com/noah-isme/hse-api/internal/risk"
)

func init() {
	color.NoColor = true
}

func TestClassifyCommand(t *testing.T) {
	cases := []struct {
		args []string
		want string
	}{
		{[]string{"classify", "4", "5"}, "score 20: critical\n"},
		{[]string{"classify", "3", "5"}, "score 15: high\n"},
		{[]string{"classify", "2", "4"}, "score 8: medium\n"},
		{[]string{"classify", "1", "1"}, "score 1: low\n"},
	}
	for _, tc := range cases {
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs(tc.args)

		require.NoError(t, cmd.Execute())
		assert.Equal(t, tc.want, out.String())
	}
}

func TestClassifyRejectsOutOfRange(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"classify", "6", "1"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "probability must be between 1 and 5")
}

func TestRenderMatrix(t *testing.T) {
	var out bytes.Buffer
	renderMatrix(&out)

	text := out.String()
	assert.Contains(t, text, "P\\S    1   2   3   4   5")
	assert.Contains(t, text, "  5    5  10  15  20  25")
	assert.Contains(t, text, "low >= 1  medium >= 8  high >= 15  critical >= 20")
}

type fakeUserStore struct {
	existing *models.User
	created  *models.User
}

func (f *fakeUserStore) FindByEmail(context.Context, string) (*models.User, error) {
	if f.existing == nil {
		return nil, sql.ErrNoRows
	}
	return f.existing, nil
}

func (f *fakeUserStore) Create(_ context.Context, user *models.User) error {
	user.ID = "user-1"
	f.created = user
	return nil
}

func TestCreateSuperAdmin(t *testing.T) {
	store := &fakeUserStore{}

	user, err := createSuperAdmin(context.Background(), store, " Ops@Example.com ", "Ops Team", "s3cret-pass")
	require.NoError(t, err)

	assert.Equal(t, "ops@example.com", user.Email)
	assert.Equal(t, models.RoleSuperAdmin, user.Role)
	assert.Nil(t, user.CompanyID)
	assert.True(t, user.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(store.created.PasswordHash), []byte("s3cret-pass")))
}

func TestCreateSuperAdminRejectsDuplicateAndWeakPassword(t *testing.T) {
	_, err := createSuperAdmin(context.Background(), &fakeUserStore{existing: &models.User{ID: "u"}}, "ops@example.com", "Ops", "s3cret-pass")
	assert.ErrorContains(t, err, "already exists")

	_, err = createSuperAdmin(context.Background(), &fakeUserStore{}, "ops@example.com", "Ops", "short")
	assert.ErrorContains(t, err, "at least 8")
}

func TestParseRating(t *testing.T) {
	rating, err := parseRating("3", "4")
	require.NoError(t, err)
	assert.Equal(t, risk.Rating{Probability: 3, Severity: 4, Score: 12, Level: risk.LevelMedium}, rating)

	_, err = parseRating("x", "4")
	assert.Error(t, err)
}
