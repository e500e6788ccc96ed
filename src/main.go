package main

import (
	"cws/src/config"
	"cws/src/controllers"
	"cws/src/db"
	"cws/src/lib"
	"cws/src/middlewares"
	"cws/src/models"
	"cws/src/prometheus"
	"cws/src/types"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"regexp"
	"strconv"
	"time"

	"github.com/covalenthq/lumberjack"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	apiPrefix string = "/api/v1"
)

var bookableDateValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(string)
	datetime, err := time.Parse(config.TIME_PARSE_FORMAT, date)
	if err != nil {
		return false
	}
	if ok {
		today := time.Now()
		if today.After(datetime) {
			return false
		}
	}
	return true
}

var gtfield validator.Func = func(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(string)
	datetime, err := time.Parse(config.TIME_PARSE_FORMAT, date)
	if err != nil {
		return false
	}
	field := fl.Parent().FieldByName(fl.Param())
	fieldValue := field.Interface().(string)
	fielddatetime, err := time.Parse(config.TIME_PARSE_FORMAT, fieldValue)
	if err != nil {
		return false
	}
	if ok {
		if fielddatetime.After(datetime) {
			return false
		}
	}
	return true
}

func setupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(middlewares.SecureHeaders)
	router.Use(middlewares.MetricsMiddleware)
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	return router
}

func maintenanceModeMiddleware(g *gin.Engine) *gin.Engine {
	g.Use(func(ctx *gin.Context) {
		mm := os.Getenv("MAINTENANCE_MODE")
		atoi, err := strconv.ParseBool(mm)
		if err == nil && atoi {
			err := errors.New("server is under maintenance")
			log.Println(err.Error())
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, err.Error())
			return
		}
	})
	return g
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	apiv1 := g.Group(apiPrefix)
	return apiv1
}

func publicRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.GET("/metrics", gin.WrapH(promhttp.Handler()))
	apiv1.GET("/categories", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"data": types.ProfessionalCategories()})
	})
	publicSpaceHandlers(apiv1)
	return apiv1
}

func guestAuthRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	guest := apiv1.Group("/auth")
	guest.
		POST("/register", func(ctx *gin.Context) {
			user, status, err := controllers.AuthRegister(ctx)
			if err != nil {
				log.Printf("[AuthRegister] error: %s\n", err.Error())
				ctx.JSON(status, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(status, gin.H{"data": user})
		}).
		POST("/resend-otp", func(ctx *gin.Context) {
			status, err := controllers.AuthResendOTP(ctx)
			if err != nil {
				log.Printf("[AuthResendOTP] error: %s\n", err.Error())
				ctx.JSON(status, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(status)
		}).
		POST("/verify-email", func(ctx *gin.Context) {
			status, err := controllers.AuthVerifyEmail(ctx)
			if err != nil {
				log.Printf("[AuthVerifyEmail] error: %s\n", err.Error())
				ctx.JSON(status, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(status)
		}).
		POST("/login", func(ctx *gin.Context) {
			token, status, err := controllers.AuthLogin(ctx)
			if err != nil {
				log.Printf("[AuthLogin] error: %s\n", err.Error())
				ctx.JSON(status, gin.H{"error": err.Error()})
				return
			}
			// Session rides an HTTP-only cookie; the body carries the token
			// for non-browser clients.
			secure := config.Get().APIEnv != "local"
			ctx.SetCookie(middlewares.SessionCookieName, *token, int((24 * time.Hour).Seconds()), "/", "", secure, true)
			ctx.JSON(http.StatusOK, gin.H{"token": token})
		})
	return guest
}

// accountHandlers covers the session's own account. The profile read is
// served from the redis cache when it is warm and falls back to the user row,
// backfilling the cache on a miss.
func accountHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/auth/me", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			cacheKey := fmt.Sprintf("%d:user", userId)
			if rd := lib.GetRedisClient(); rd != nil {
				if cached, err := rd.JSONGet(ctx, cacheKey, "$").Result(); err == nil && cached != "" {
					var users []models.User
					if err := json.Unmarshal([]byte(cached), &users); err == nil && len(users) > 0 {
						ctx.JSON(http.StatusOK, gin.H{"data": users[0]})
						return
					}
				}
			}
			db := db.GetDb()
			var user models.User
			if err := db.First(&user, userId).Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			if rd := lib.GetRedisClient(); rd != nil {
				if _, err := rd.JSONSet(ctx, cacheKey, "$", &user).Result(); err != nil {
					log.Printf("[redis] Error updating user cache: %s\n", err.Error())
				}
			}
			ctx.JSON(http.StatusOK, gin.H{"data": user})
		}).
		PUT("/auth/me", func(ctx *gin.Context) {
			user, status, err := controllers.AuthUpdateProfile(ctx)
			if err != nil {
				log.Printf("[AuthUpdateProfile] error: %s\n", err.Error())
				ctx.JSON(status, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(status, gin.H{"data": user})
		}).
		POST("/auth/register-owner", func(ctx *gin.Context) {
			owner, status, err := controllers.AuthRegisterOwner(ctx)
			if err != nil {
				log.Printf("[AuthRegisterOwner] error: %s\n", err.Error())
				ctx.JSON(status, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(status, gin.H{"data": owner})
		}).
		POST("/auth/logout", func(ctx *gin.Context) {
			controllers.AuthLogout(ctx)
			secure := config.Get().APIEnv != "local"
			ctx.SetCookie(middlewares.SessionCookieName, "", -1, "/", "", secure, true)
			ctx.Status(http.StatusNoContent)
		})
	return g
}

func migrateDb() {
	db := db.GetDb()
	if err := db.AutoMigrate(
		&models.User{},
		&models.SpaceOwner{},
		&models.BusinessInfo{},
		&models.BusinessBalance{},
		&models.SpaceOwnerPayout{},
		&models.Space{},
		&models.Booking{},
		&models.Review{},
		&models.TaxConfiguration{},
		&models.Transaction{},
	); err != nil {
		log.Fatalf("Error running migrations: %s\n", err.Error())
	}
}

func initLogger() {
	cwd, _ := os.Getwd()
	serverLogs := path.Join(cwd, "logs", "server.log")
	apiLogs := path.Join(cwd, "logs", "api.log")
	gin.ForceConsoleColor()

	f, _ := os.Create(apiLogs)
	gin.DefaultWriter = io.MultiWriter(f, os.Stdout)
	log.SetOutput(&lumberjack.Logger{
		Filename:   serverLogs,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	})
}

func main() {
	apiEnv := os.Getenv("API_ENV")
	if apiEnv == "local" {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
			log.Printf("no .env file loaded: %s\n", err.Error())
		}
	}
	initLogger()

	cfg := config.Load()
	migrateDb()
	prometheus.InitMetrics(cfg.MetricsPrefix)

	router := setupRouter()

	appHost := cfg.AppHost
	if apiEnv == "local" {
		router.Use(cors.Default())
	} else {
		cc := cors.DefaultConfig()
		cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "PATCH", "PUT", "DELETE", "HEAD")
		cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization")
		cc.AllowOriginFunc = func(origin string) bool {
			match, _ := regexp.MatchString(appHost, origin)
			return match
		}
		cc.AllowCredentials = true
		cc.AllowAllOrigins = false
		router.Use(cors.New(cc))
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("bookabledate", bookableDateValidatorFunc)
		v.RegisterValidation("gtdate", gtfield)
	}

	router = maintenanceModeMiddleware(router)

	publicRoutes(router)

	guestAuthRoutes(router)

	stripeWebhookRoute(router)

	authorized := router.Group(apiPrefix)
	authorized.Use(middlewares.AuthMiddleware)
	{
		accountHandlers(authorized)

		bookingHandlers(authorized)
		reviewHandlers(authorized)
		paymentHandlers(authorized)
	}

	owner := router.Group(apiPrefix)
	owner.Use(middlewares.AuthMiddleware)
	owner.Use(middlewares.RequireRole(types.ROLE_OWNER, types.ROLE_ADMIN))
	{
		ownerSpaceHandlers(owner)
		ownerHandlers(owner)
	}

	admin := router.Group(apiPrefix)
	admin.Use(middlewares.AuthMiddleware)
	admin.Use(middlewares.RequireRole(types.ROLE_ADMIN))
	{
		adminHandlers(admin)
	}

	if err := router.Run(fmt.Sprintf(":%s", cfg.Port)); err != nil {
		log.Fatalf("Error starting server: %s\n", err.Error())
	}
}
