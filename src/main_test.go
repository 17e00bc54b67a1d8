package main

import (
	"eduspace/src/db"
	"eduspace/src/middlewares"
	"eduspace/src/models"
	"eduspace/src/types"
	"eduspace/src/utils"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type TestSuite struct {
	suite.Suite
}

func (s *TestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	os.Setenv("JWT_SECRET", "test-secret")

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("bookabledate", bookableDateValidatorFunc)
	}
}

func NewMockDB() (*gorm.DB, sqlmock.Sqlmock) {
	mockdb, mock, err := sqlmock.New()
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockdb}), &gorm.Config{})
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening gorm database", err)
	}

	return gormDB, mock
}

func authedRouter() *gin.Engine {
	router := setupRouter()
	authorized := router.Group(apiPrefix)
	authorized.Use(middlewares.AuthMiddleware)
	listingHandlers(authorized)
	bookingHandlers(authorized)
	return router
}

func (s *TestSuite) TestPingRoute() {
	router := setupRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
}

func (s *TestSuite) TestRegisterValidation() {
	router := setupRouter()
	guestAuthRoutes(router)

	s.Run("Should reject a body missing required fields", func() {
		w := httptest.NewRecorder()
		body, _ := json.Marshal(map[string]any{"email": "t@x.com"})
		req, _ := http.NewRequest("POST", "/api/v1/auth/register", strings.NewReader(string(body)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
		assert.False(s.T(), gjson.Get(w.Body.String(), "success").Bool())
	})

	s.Run("Should reject the admin role unconditionally", func() {
		w := httptest.NewRecorder()
		body, _ := json.Marshal(map[string]any{
			"name":     "Mallory",
			"email":    "mallory@x.com",
			"password": "password123",
			"role":     "admin",
		})
		req, _ := http.NewRequest("POST", "/api/v1/auth/register", strings.NewReader(string(body)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
		assert.False(s.T(), gjson.Get(w.Body.String(), "success").Bool())
	})
}

func (s *TestSuite) TestRegister() {
	router := setupRouter()
	guestAuthRoutes(router)

	s.Run("Should create a teacher account and return a token", func() {
		d, mock := NewMockDB()
		db.NewDB(d)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT count`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`INSERT INTO "users"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectCommit()

		w := httptest.NewRecorder()
		body, _ := json.Marshal(types.RegisterRequestBody{
			Name:     "Tess Teacher",
			Email:    "t@x.com",
			Password: "password123",
			Role:     types.ROLE_TEACHER,
			Subject:  "Physics",
		})
		req, _ := http.NewRequest("POST", "/api/v1/auth/register", strings.NewReader(string(body)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 201, w.Code)
		res := w.Body.String()
		assert.True(s.T(), gjson.Get(res, "success").Bool())
		assert.NotEmpty(s.T(), gjson.Get(res, "token").String())
		assert.Equal(s.T(), "teacher", gjson.Get(res, "user.role").String())
	})

	s.Run("Should return a conflict for a duplicate email", func() {
		d, mock := NewMockDB()
		db.NewDB(d)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT count`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectRollback()

		w := httptest.NewRecorder()
		body, _ := json.Marshal(types.RegisterRequestBody{
			Name:     "Tess Teacher",
			Email:    "t@x.com",
			Password: "different-password",
			Role:     types.ROLE_TEACHER,
		})
		req, _ := http.NewRequest("POST", "/api/v1/auth/register", strings.NewReader(string(body)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 409, w.Code)
		assert.False(s.T(), gjson.Get(w.Body.String(), "success").Bool())
	})
}

func (s *TestSuite) TestAuthRequired() {
	router := authedRouter()

	s.Run("Should reject a request without a token", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/bookings/mine", nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 401, w.Code)
	})

	s.Run("Should reject a garbage token", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/bookings/mine", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 401, w.Code)
	})
}

func (s *TestSuite) TestRoleGate() {
	router := authedRouter()

	s.Run("Should forbid a school account from creating a booking", func() {
		d, mock := NewMockDB()
		db.NewDB(d)
		mock.ExpectQuery(`SELECT \* FROM "users"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role"}).
				AddRow(2, "ABC School", "s@x.com", "school"))

		token, err := utils.GenerateJWT("s@x.com", 2, types.ROLE_SCHOOL)
		assert.Nil(s.T(), err)

		w := httptest.NewRecorder()
		body, _ := json.Marshal(map[string]any{
			"listing":   1,
			"date":      "2030-01-01",
			"time_slot": "full_day",
			"purpose":   "Physics class",
			"attendees": 10,
		})
		req, _ := http.NewRequest("POST", "/api/v1/bookings", strings.NewReader(string(body)))
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 403, w.Code)
	})

	s.Run("Should forbid a teacher account from creating a listing", func() {
		d, mock := NewMockDB()
		db.NewDB(d)
		mock.ExpectQuery(`SELECT \* FROM "users"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role"}).
				AddRow(1, "Tess Teacher", "t@x.com", "teacher"))

		token, err := utils.GenerateJWT("t@x.com", 1, types.ROLE_TEACHER)
		assert.Nil(s.T(), err)

		w := httptest.NewRecorder()
		body, _ := json.Marshal(map[string]any{
			"name":        "Room 101",
			"description": "A classroom",
			"category":    "Classroom",
			"capacity":    10,
			"price":       1000,
			"location":    "Springfield",
		})
		req, _ := http.NewRequest("POST", "/api/v1/listings", strings.NewReader(string(body)))
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 403, w.Code)
	})
}

func (s *TestSuite) TestBookingRules() {
	router := authedRouter()

	s.Run("Should reject a booking exceeding the listing capacity", func() {
		d, mock := NewMockDB()
		db.NewDB(d)
		mock.ExpectQuery(`SELECT \* FROM "users"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role"}).
				AddRow(1, "Tess Teacher", "t@x.com", "teacher"))
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "listings"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "capacity", "price", "owner_id"}).
				AddRow(1, 10, 1000, 2))
		mock.ExpectRollback()

		token, _ := utils.GenerateJWT("t@x.com", 1, types.ROLE_TEACHER)

		w := httptest.NewRecorder()
		body, _ := json.Marshal(map[string]any{
			"listing":   1,
			"date":      "2030-01-01",
			"time_slot": "half_day_morning",
			"purpose":   "Physics class",
			"attendees": 50,
		})
		req, _ := http.NewRequest("POST", "/api/v1/bookings", strings.NewReader(string(body)))
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
		res := w.Body.String()
		assert.False(s.T(), gjson.Get(res, "success").Bool())
		assert.Contains(s.T(), gjson.Get(res, "message").String(), "capacity")
	})

	s.Run("Should reject a past booking date before touching the database", func() {
		token, _ := utils.GenerateJWT("t@x.com", 1, types.ROLE_TEACHER)
		d, mock := NewMockDB()
		db.NewDB(d)
		mock.ExpectQuery(`SELECT \* FROM "users"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role"}).
				AddRow(1, "Tess Teacher", "t@x.com", "teacher"))

		w := httptest.NewRecorder()
		body, _ := json.Marshal(map[string]any{
			"listing":   1,
			"date":      "2020-01-01",
			"time_slot": "full_day",
			"purpose":   "Physics class",
			"attendees": 5,
		})
		req, _ := http.NewRequest("POST", "/api/v1/bookings", strings.NewReader(string(body)))
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should refuse to cancel a rejected booking", func() {
		d, mock := NewMockDB()
		db.NewDB(d)
		mock.ExpectQuery(`SELECT \* FROM "users"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role"}).
				AddRow(1, "Tess Teacher", "t@x.com", "teacher"))
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "bookings"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "teacher_id", "school_id", "status"}).
				AddRow(7, 1, 2, "rejected"))
		mock.ExpectRollback()

		token, _ := utils.GenerateJWT("t@x.com", 1, types.ROLE_TEACHER)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/api/v1/bookings/7/cancel", nil)
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
		assert.Contains(s.T(), gjson.Get(w.Body.String(), "message").String(), "cannot cancel")
	})

	s.Run("Should forbid cancelling another teacher's booking", func() {
		d, mock := NewMockDB()
		db.NewDB(d)
		mock.ExpectQuery(`SELECT \* FROM "users"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role"}).
				AddRow(3, "Other Teacher", "o@x.com", "teacher"))
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "bookings"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "teacher_id", "school_id", "status"}).
				AddRow(7, 1, 2, "pending"))
		mock.ExpectRollback()

		token, _ := utils.GenerateJWT("o@x.com", 3, types.ROLE_TEACHER)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/api/v1/bookings/7/cancel", nil)
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 403, w.Code)
	})
}

func (s *TestSuite) TestPublicListings() {
	router := setupRouter()
	publicRoutes(router)

	s.Run("Should return an empty list without a token", func() {
		d, mock := NewMockDB()
		db.NewDB(d)
		mock.ExpectQuery(`SELECT \* FROM "listings"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "status"}))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/listings", nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 200, w.Code)
		res := w.Body.String()
		assert.True(s.T(), gjson.Get(res, "success").Bool())
		assert.Equal(s.T(), int64(0), gjson.Get(res, "count").Int())
	})
}

func (s *TestSuite) TestLoginMessages() {
	router := setupRouter()
	guestAuthRoutes(router)

	hashed, err := utils.HashPassword("right-password")
	assert.Nil(s.T(), err)

	login := func(email string, password string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		body, _ := json.Marshal(map[string]any{"email": email, "password": password})
		req, _ := http.NewRequest("POST", "/api/v1/auth/login", strings.NewReader(string(body)))
		router.ServeHTTP(w, req)
		return w
	}

	d, mock := NewMockDB()
	db.NewDB(d)
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	unknown := login("nobody@x.com", "whatever")

	d, mock = NewMockDB()
	db.NewDB(d)
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password", "role"}).
			AddRow(1, "t@x.com", hashed, "teacher"))
	wrongPassword := login("t@x.com", "wrong-password")

	assert.Equal(s.T(), 401, unknown.Code)
	assert.Equal(s.T(), 401, wrongPassword.Code)
	// An unknown email and a wrong password must be indistinguishable.
	assert.Equal(s.T(),
		gjson.Get(unknown.Body.String(), "message").String(),
		gjson.Get(wrongPassword.Body.String(), "message").String())
}

func (s *TestSuite) TestResetTokenSingleUse() {
	router := setupRouter()
	guestAuthRoutes(router)

	plaintext, _, err := utils.NewResetToken()
	assert.Nil(s.T(), err)
	body, _ := json.Marshal(map[string]any{"password": "brand-new-pass"})

	d, mock := NewMockDB()
	db.NewDB(d)
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "role"}).
			AddRow(1, "t@x.com", "teacher"))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", fmt.Sprintf("/api/v1/auth/reset-password/%s", plaintext), strings.NewReader(string(body)))
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
	assert.NotEmpty(s.T(), gjson.Get(w.Body.String(), "token").String())
	assert.Nil(s.T(), mock.ExpectationsWereMet())

	// The stored hash was cleared, so the same link must not work twice.
	d, mock = NewMockDB()
	db.NewDB(d)
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("PUT", fmt.Sprintf("/api/v1/auth/reset-password/%s", plaintext), strings.NewReader(string(body)))
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 400, w.Code)
	assert.Contains(s.T(), gjson.Get(w.Body.String(), "message").String(), "Invalid or expired")
}

func (s *TestSuite) TestAuthMe() {
	router := setupRouter()
	authorized := router.Group(apiPrefix)
	authorized.Use(middlewares.AuthMiddleware)
	sessionRoutes(authorized)

	d, mock := NewMockDB()
	db.NewDB(d)
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role"}).
			AddRow(1, "Tess Teacher", "t@x.com", "teacher"))
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role"}).
			AddRow(1, "Tess Teacher", "t@x.com", "teacher"))

	token, err := utils.GenerateJWT("t@x.com", 1, types.ROLE_TEACHER)
	assert.Nil(s.T(), err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
	res := w.Body.String()
	assert.True(s.T(), gjson.Get(res, "success").Bool())
	assert.Equal(s.T(), "t@x.com", gjson.Get(res, "user.email").String())
}

func (s *TestSuite) TestGoogleOauthState() {
	router := setupRouter()
	guestAuthRoutes(router)

	s.Run("Should set the state cookie on the consent redirect", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/auth/google", nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), http.StatusTemporaryRedirect, w.Code)
		var state string
		for _, c := range w.Result().Cookies() {
			if c.Name == "oauth_state" {
				state = c.Value
			}
		}
		assert.NotEmpty(s.T(), state)
		location := w.Header().Get("Location")
		assert.Contains(s.T(), location, "state=")
		assert.Contains(s.T(), location, state)
	})

	s.Run("Should bounce a callback whose state does not match the cookie", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/auth/google/callback?code=abc&state=forged", nil)
		req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "genuine"})
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), http.StatusTemporaryRedirect, w.Code)
		assert.Contains(s.T(), w.Header().Get("Location"), "error=")
	})

	s.Run("Should bounce a callback carrying no state cookie at all", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/auth/google/callback?code=abc&state=forged", nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), http.StatusTemporaryRedirect, w.Code)
		assert.Contains(s.T(), w.Header().Get("Location"), "error=")
	})
}

func TestBookingMatchesSearch(t *testing.T) {
	booking := &models.Booking{
		Purpose: "Physics class",
		Listing: &models.Listing{Name: "Room 101", Location: "Springfield"},
		Teacher: &models.User{Name: "Tess Teacher", Email: "t@x.com"},
		School:  &models.User{Name: "ABC School", SchoolName: "ABC Elementary", Email: "s@x.com"},
	}

	assert.True(t, bookingMatchesSearch(booking, ""))
	assert.True(t, bookingMatchesSearch(booking, "physics"))
	assert.True(t, bookingMatchesSearch(booking, "room 101"))
	assert.True(t, bookingMatchesSearch(booking, "abc"))
	assert.True(t, bookingMatchesSearch(booking, "tess"))
	assert.False(t, bookingMatchesSearch(booking, "chemistry"))
}

func TestRunner(t *testing.T) {
	suite.Run(t, new(TestSuite))
}
