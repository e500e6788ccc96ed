package utils

import (
	"cws/src/config"
	"cws/src/models"
	"cws/src/types"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/go-faker/faker/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestBillableUnits(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	units, err := BillableUnits(start, start.Add(2*time.Hour), false)
	assert.Nil(t, err)
	assert.Equal(t, uint(2), units)

	units, err = BillableUnits(start, start.Add(90*time.Minute), false)
	assert.Nil(t, err)
	assert.Equal(t, uint(2), units, "partial hours round up")

	units, err = BillableUnits(start, start.Add(10*time.Minute), false)
	assert.Nil(t, err)
	assert.Equal(t, uint(1), units, "minimum of one unit")

	units, err = BillableUnits(start, start.Add(30*time.Hour), true)
	assert.Nil(t, err)
	assert.Equal(t, uint(2), units, "partial days round up")

	units, err = BillableUnits(start, start.Add(4*time.Hour), true)
	assert.Nil(t, err)
	assert.Equal(t, uint(1), units)

	_, err = BillableUnits(start, start, false)
	assert.ErrorIs(t, err, ErrMalformedTimeRange)

	_, err = BillableUnits(start, start.Add(-time.Hour), false)
	assert.ErrorIs(t, err, ErrMalformedTimeRange)
}

func TestQuoteFromTaxes(t *testing.T) {
	taxes := []models.TaxConfiguration{
		{Name: "GST", Percentage: 18, AppliesTo: types.TAX_APPLIES_BOOKING, IsEnabled: true},
		{Name: "Platform Commission", Percentage: 10, AppliesTo: types.TAX_APPLIES_PAYOUT, IsEnabled: true},
	}

	// 3 seats at 150/hr for 2 hours.
	quote := QuoteFromTaxes(150*2*3, taxes)
	assert.Equal(t, float64(900), quote.BaseAmount)
	assert.Equal(t, float64(162), quote.TaxAmount)
	assert.Equal(t, float64(1062), quote.TotalAmount)
	assert.Equal(t, float64(810), quote.OwnerPayout)
	assert.Len(t, quote.Taxes, 1, "payout-side rules are not consumer-facing")
	assert.Equal(t, "GST", quote.Taxes[0].Name)
}

func TestQuoteFromTaxesBothSides(t *testing.T) {
	taxes := []models.TaxConfiguration{
		{Name: "Levy", Percentage: 5, AppliesTo: types.TAX_APPLIES_BOTH, IsEnabled: true},
	}
	quote := QuoteFromTaxes(1000, taxes)
	assert.Equal(t, float64(50), quote.TaxAmount)
	assert.Equal(t, float64(1050), quote.TotalAmount)
	assert.Equal(t, float64(950), quote.OwnerPayout)
	assert.Len(t, quote.Taxes, 1)
}

func TestQuoteFromTaxesDisabledRulesSkipped(t *testing.T) {
	taxes := []models.TaxConfiguration{
		{Name: "Old GST", Percentage: 12, AppliesTo: types.TAX_APPLIES_BOOKING, IsEnabled: false},
	}
	quote := QuoteFromTaxes(500, taxes)
	assert.Equal(t, float64(0), quote.TaxAmount)
	assert.Equal(t, float64(500), quote.TotalAmount)
	assert.Equal(t, float64(500), quote.OwnerPayout)
	assert.Empty(t, quote.Taxes)
}

func TestQuoteFromTaxesNoRules(t *testing.T) {
	quote := QuoteFromTaxes(250, nil)
	assert.Equal(t, float64(250), quote.BaseAmount)
	assert.Equal(t, float64(0), quote.TaxAmount)
	assert.Equal(t, float64(250), quote.TotalAmount)
	assert.Equal(t, float64(250), quote.OwnerPayout)
}

func TestGenerateRedemptionCode(t *testing.T) {
	pattern := regexp.MustCompile(`^CWS-[0-9A-Z]+-[0-9A-F]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code := GenerateRedemptionCode()
		assert.Regexp(t, pattern, code)
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, types.CATEGORY_DEVELOPER, types.NormalizeCategory("developer"))
	assert.Equal(t, types.CATEGORY_OTHER, types.NormalizeCategory("astronaut"))
	assert.Equal(t, types.CATEGORY_OTHER, types.NormalizeCategory(""))
}

func TestTallyColumn(t *testing.T) {
	assert.Equal(t, "tally_designer", models.TallyColumn(types.CATEGORY_DESIGNER))
	assert.Equal(t, "tally_other", models.TallyColumn(types.CATEGORY_OTHER))
	assert.Equal(t, "tally_other", models.TallyColumn(types.ProfessionalCategory("astronaut")))
	for _, c := range types.ProfessionalCategories() {
		assert.NotEmpty(t, models.TallyColumn(c))
	}
}

func TestPasswordHashing(t *testing.T) {
	password := faker.Password()
	hash, err := HashPassword(password)
	assert.Nil(t, err)
	assert.NotEqual(t, password, hash)
	assert.True(t, CheckPasswordHash(password, hash))
	assert.False(t, CheckPasswordHash(password+"x", hash))
}

func TestGenerateJWT(t *testing.T) {
	config.NewConfig(&config.Config{JWTSecret: "testsecret"})

	user := models.User{
		ID:       42,
		Email:    faker.Email(),
		Role:     types.ROLE_USER,
		IsActive: true,
	}
	token, err := GenerateJWT(&user)
	assert.Nil(t, err)
	assert.NotEmpty(t, token)

	claims := &types.Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte("testsecret"), nil
	})
	assert.Nil(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, strconv.Itoa(42), claims.Subject)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, types.ROLE_USER, claims.Role)
}

func TestGenerateOTP(t *testing.T) {
	otp, expiry := GenerateOTP()
	assert.Len(t, otp, 6)
	assert.Regexp(t, `^[0-9]{6}$`, otp)
	assert.True(t, expiry.After(time.Now()))
}
