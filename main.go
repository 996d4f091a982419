package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ariebrainware/hospital-desk/captcha"
	"github.com/ariebrainware/hospital-desk/config"
	"github.com/ariebrainware/hospital-desk/endpoint"
	"github.com/ariebrainware/hospital-desk/model"
	"github.com/ariebrainware/hospital-desk/notification"
	"github.com/ariebrainware/hospital-desk/router"
	"github.com/ariebrainware/hospital-desk/util"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hospital-desk",
		Short: "Hospital front desk API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.AppEnv == "" || cfg.AppEnv == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update every table and seed the roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			log.Logger = newLogger(cfg)
			db, err := config.ConnectDatabase()
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			if err := model.Migrate(db); err != nil {
				return err
			}
			log.Info().Msg("migration complete")
			return nil
		},
	}
}

type adminSeed struct {
	Username string
	Password string
	Email    string
	Name     string
}

func seedAdminCmd() *cobra.Command {
	var seed adminSeed
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the first administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			log.Logger = newLogger(cfg)
			db, err := config.ConnectDatabase()
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			if err := model.Migrate(db); err != nil {
				return err
			}
			user, err := seedAdmin(db, seed)
			if err != nil {
				return err
			}
			log.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("admin account created")
			return nil
		},
	}
	cmd.Flags().StringVar(&seed.Username, "username", "admin", "admin username")
	cmd.Flags().StringVar(&seed.Password, "password", "", "admin password (at least 8 characters)")
	cmd.Flags().StringVar(&seed.Email, "email", "", "admin email")
	cmd.Flags().StringVar(&seed.Name, "name", "Administrator", "display name")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

var errAdminExists = errors.New("username or email already taken")

func seedAdmin(db *gorm.DB, seed adminSeed) (model.User, error) {
	seed.Username = strings.TrimSpace(seed.Username)
	seed.Email = strings.TrimSpace(seed.Email)
	if seed.Username == "" {
		return model.User{}, errors.New("username is required")
	}
	if len(seed.Password) < 8 {
		return model.User{}, errors.New("password must be at least 8 characters")
	}
	if err := util.ValidateEmail(seed.Email); err != nil {
		return model.User{}, err
	}

	var count int64
	if err := db.Unscoped().Model(&model.User{}).Where("username = ? OR email = ?", seed.Username, seed.Email).Count(&count).Error; err != nil {
		return model.User{}, err
	}
	if count > 0 {
		return model.User{}, errAdminExists
	}

	hash, salt, err := util.NewPasswordHash(seed.Password)
	if err != nil {
		return model.User{}, err
	}
	user := model.User{
		Name:         util.NormalizeName(seed.Name),
		Email:        seed.Email,
		Username:     seed.Username,
		Password:     hash,
		PasswordSalt: salt,
		RoleID:       model.RoleAdmin,
		Role:         model.RoleName(model.RoleAdmin),
		IsActive:     true,
		// Admins always log in with a password.
		RequiresPassword: true,
	}
	if err := db.Create(&user).Error; err != nil {
		return model.User{}, err
	}
	return user, nil
}

func runServer() error {
	cfg := config.LoadConfig()
	logger := newLogger(cfg)
	log.Logger = logger

	if len(util.GetJWTSecretByte()) == 0 {
		logger.Fatal().Msg("JWTSECRET is not set")
	}

	db, err := config.ConnectDatabase()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := model.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}
	logger.Info().Str("driver", cfg.DBDriver).Msg("connected to database")

	rdb, err := config.ConnectRedis()
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, falling back to database sessions")
	}
	if rdb != nil {
		endpoint.SetCaptchaService(captcha.NewService(captcha.NewRedisStore(rdb), cfg.CaptchaTTL))
	} else {
		endpoint.SetCaptchaService(captcha.NewService(captcha.NewMemoryStore(), cfg.CaptchaTTL))
	}

	if err := util.InitGeoIP(""); err != nil {
		logger.Warn().Err(err).Msg("geoip lookups disabled")
	}
	defer util.CloseGeoIP()
	util.InitUserEmailCacheFromEnv()
	util.SetSecurityLoggerDB(db)

	sender := notification.NewSenderFromConfig(notification.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}, logger)
	mailer := notification.NewMailer(sender, logger, cfg.MailWorkers, 0)
	notification.SetDefault(mailer)

	gin.SetMode(cfg.GinMode)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AppPort),
		Handler:           router.SetupRouter(db, router.Options{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	if err := mailer.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("mail queue not drained")
	}
	logger.Info().Msg("server stopped")
	return nil
}
