package main

import (
	"cws/src/config"
	"cws/src/db"
	"cws/src/middlewares"
	"cws/src/prometheus"
	"cws/src/types"
	"cws/src/utils"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-faker/faker/v4"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type TestSuite struct {
	suite.Suite
	DB   *gorm.DB
	Mock *sqlmock.Sqlmock
}

func NewMockDB() (*gorm.DB, sqlmock.Sqlmock) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{})
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening gorm database", err)
	}

	return gormDB, mock
}

// stubAuthMiddleware injects a session without touching the database.
func stubAuthMiddleware(role types.AccountRole) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set("id", uint(1))
		ctx.Set("email", "someone@example.com")
		ctx.Set("role", string(role))
		ctx.Set("category", string(types.CATEGORY_DEVELOPER))
	}
}

func (s *TestSuite) SetupSuite() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("bookabledate", bookableDateValidatorFunc)
		v.RegisterValidation("gtdate", gtfield)
	}

	config.NewConfig(&config.Config{
		APIEnv:        "test",
		JWTSecret:     "secret",
		Currency:      "inr",
		MetricsPrefix: "cws_test",
		TempDir:       os.TempDir(),
	})
	prometheus.InitMetrics("cws_test")

	d, mock := NewMockDB()
	db.NewDB(d)
	s.DB = d
	s.Mock = &mock
}

func (s *TestSuite) TestPingRoute() {
	router := setupRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
}

func (s *TestSuite) TestMaintenanceMode() {
	os.Setenv("MAINTENANCE_MODE", "true")
	defer os.Unsetenv("MAINTENANCE_MODE")

	router := setupRouter()
	router = maintenanceModeMiddleware(router)
	apiv1Group(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 503, w.Code)
}

func (s *TestSuite) TestMetricsRoute() {
	router := setupRouter()
	publicRoutes(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/metrics", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
	body, err := io.ReadAll(w.Body)
	assert.Nil(s.T(), err)
	assert.Contains(s.T(), string(body), "cws_test_http_requests_total")
}

func (s *TestSuite) TestCategoriesRoute() {
	router := setupRouter()
	publicRoutes(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/categories", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
	body, err := io.ReadAll(w.Body)
	assert.Nil(s.T(), err)
	data := gjson.Get(string(body), "data")
	assert.Equal(s.T(), int64(10), int64(len(data.Array())))
}

func (s *TestSuite) TestAuthValidation() {
	router := setupRouter()
	guestAuthRoutes(router)

	s.Run("Should reject registration with a short password", func() {
		w := httptest.NewRecorder()
		jbody := map[string]any{
			"name":     "Test User",
			"email":    faker.Email(),
			"password": "short",
		}
		sbody, _ := json.Marshal(&jbody)
		req, _ := http.NewRequest("POST", "/api/v1/auth/register", strings.NewReader(string(sbody)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		errMsg := gjson.Get(string(rbytes), "error").String()
		assert.NotEmpty(s.T(), errMsg)
	})

	s.Run("Should reject login without a password", func() {
		w := httptest.NewRecorder()
		jbody := map[string]any{
			"email": "someone@example.com",
		}
		sbody, _ := json.Marshal(&jbody)
		req, _ := http.NewRequest("POST", "/api/v1/auth/login", strings.NewReader(string(sbody)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should reject a malformed OTP", func() {
		w := httptest.NewRecorder()
		jbody := map[string]any{
			"email": "someone@example.com",
			"otp":   "12",
		}
		sbody, _ := json.Marshal(&jbody)
		req, _ := http.NewRequest("POST", "/api/v1/auth/verify-email", strings.NewReader(string(sbody)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})
}

func (s *TestSuite) TestRequiresSession() {
	router := setupRouter()
	authorized := apiv1Group(router)
	authorized.Use(middlewares.AuthMiddleware)
	bookingHandlers(authorized)

	s.Run("Should return 401 without a session", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/bookings", nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 401, w.Code)
	})

	s.Run("Should return 401 with a garbage token", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/bookings", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 401, w.Code)
	})
}

func (s *TestSuite) TestRequireRole() {
	router := setupRouter()
	admin := apiv1Group(router)
	admin.Use(stubAuthMiddleware(types.ROLE_USER))
	admin.Use(middlewares.RequireRole(types.ROLE_ADMIN))
	adminHandlers(admin)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/admin/taxes", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 403, w.Code)
	rbytes, err := io.ReadAll(w.Body)
	assert.Nil(s.T(), err)
	errMsg := gjson.Get(string(rbytes), "error").String()
	assert.Equal(s.T(), "insufficient role", errMsg)
}

func (s *TestSuite) TestBookingValidation() {
	router := setupRouter()
	authorized := apiv1Group(router)
	authorized.Use(stubAuthMiddleware(types.ROLE_USER))
	bookingHandlers(authorized)

	s.Run("Should reject a booking in the past", func() {
		w := httptest.NewRecorder()
		reqBody := types.CreateBookingRequestBody{
			SpaceID:   1,
			StartTime: "2020-01-01 10:00:00 +05:30",
			EndTime:   "2020-01-01 12:00:00 +05:30",
			Seats:     2,
		}
		rbytes, err := json.Marshal(&reqBody)
		assert.Nil(s.T(), err)
		req, _ := http.NewRequest("POST", "/api/v1/bookings", strings.NewReader(string(rbytes)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should reject an inverted time range", func() {
		w := httptest.NewRecorder()
		reqBody := types.CreateBookingRequestBody{
			SpaceID:   1,
			StartTime: "2030-01-01 12:00:00 +05:30",
			EndTime:   "2030-01-01 10:00:00 +05:30",
			Seats:     2,
		}
		rbytes, err := json.Marshal(&reqBody)
		assert.Nil(s.T(), err)
		req, _ := http.NewRequest("POST", "/api/v1/bookings", strings.NewReader(string(rbytes)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should reject zero seats", func() {
		w := httptest.NewRecorder()
		jbody := map[string]any{
			"space_id":   1,
			"start_time": "2030-01-01 10:00:00 +05:30",
			"end_time":   "2030-01-01 12:00:00 +05:30",
			"seats":      0,
		}
		sbody, _ := json.Marshal(&jbody)
		req, _ := http.NewRequest("POST", "/api/v1/bookings", strings.NewReader(string(sbody)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})
}

func (s *TestSuite) TestMeRoute() {
	router := setupRouter()
	authorized := apiv1Group(router)
	authorized.Use(stubAuthMiddleware(types.ROLE_USER))
	accountHandlers(authorized)

	// No redis configured, so the profile is served from the user row.
	mock := *s.Mock
	mock.ExpectQuery(`SELECT .* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role", "category"}).
			AddRow(1, "Test User", "someone@example.com", "user", "developer"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/auth/me", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
	rbytes, err := io.ReadAll(w.Body)
	assert.Nil(s.T(), err)
	sjson := string(rbytes)
	assert.Equal(s.T(), "someone@example.com", gjson.Get(sjson, "data.email").String())
	assert.Equal(s.T(), "developer", gjson.Get(sjson, "data.category").String())
	assert.Nil(s.T(), mock.ExpectationsWereMet())
}

func (s *TestSuite) TestReviewEligibilityGate() {
	router := setupRouter()
	authorized := apiv1Group(router)
	authorized.Use(stubAuthMiddleware(types.ROLE_USER))
	reviewHandlers(authorized)

	mock := *s.Mock
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "spaces"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(3, "Quiet Loft"))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	w := httptest.NewRecorder()
	jbody := map[string]any{
		"space_id": 3,
		"rating":   5,
	}
	sbody, _ := json.Marshal(&jbody)
	req, _ := http.NewRequest("POST", "/api/v1/reviews", strings.NewReader(string(sbody)))
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 403, w.Code)
	rbytes, err := io.ReadAll(w.Body)
	assert.Nil(s.T(), err)
	errMsg := gjson.Get(string(rbytes), "error").String()
	assert.Contains(s.T(), errMsg, "redeemed booking")
	assert.Nil(s.T(), mock.ExpectationsWereMet())
}

func (s *TestSuite) TestPayoutValidation() {
	router := setupRouter()
	owner := apiv1Group(router)
	owner.Use(stubAuthMiddleware(types.ROLE_OWNER))
	owner.Use(middlewares.RequireRole(types.ROLE_OWNER, types.ROLE_ADMIN))
	ownerHandlers(owner)

	w := httptest.NewRecorder()
	jbody := map[string]any{
		"amount": -50,
	}
	sbody, _ := json.Marshal(&jbody)
	req, _ := http.NewRequest("POST", "/api/v1/owner/payouts", strings.NewReader(string(sbody)))
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 400, w.Code)
}

func TestBookingErrorStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, bookingErrorStatus(gorm.ErrRecordNotFound))
	assert.Equal(t, http.StatusConflict, bookingErrorStatus(utils.ErrInsufficientCapacity))
	assert.Equal(t, http.StatusConflict, bookingErrorStatus(utils.ErrBookingNotCancelable))
	assert.Equal(t, http.StatusBadRequest, bookingErrorStatus(utils.ErrMalformedTimeRange))
	assert.Equal(t, http.StatusBadRequest, bookingErrorStatus(fmt.Errorf("anything else")))
}

func TestSuiteRun(t *testing.T) {
	suite.Run(t, new(TestSuite))
}
