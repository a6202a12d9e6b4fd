package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var Conf *Config

type (
	Config struct {
		AppName          string
		Env              string // DEV (local; default), TEST, QA, PROD
		Debug            bool
		TestMode         bool
		Build            string
		WorkDir          string
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address `mapstructure:"-"` // parsed from the defaultFromEmail string below
		AdminEmail       string

		PasswordResetTimeoutDelta time.Duration

		RollbarToken   string
		SendgridAPIKey string

		Server     ServerConfig
		Database   DatabaseConfig
		Attendance AttendanceConfig
	}

	ServerConfig struct {
		Host                      string
		Port                      int
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          int
		DisableTLS    bool
		AutoMigrate   bool
	}

	AttendanceConfig struct {
		// check-in is accepted from GraceBefore before a group's start time
		// through GraceAfter after it
		GraceBefore time.Duration
		GraceAfter  time.Duration

		// SweepSpec runs in Timezone; Timezone is also the canonical clock
		// source for "today" everywhere in core/schedule
		SweepSpec string
		Timezone  string
	}
)

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

var (
	attLoc     *time.Location
	attLocOnce sync.Once
)

// Location resolves the configured attendance timezone.
func (c AttendanceConfig) Location() *time.Location {
	attLocOnce.Do(func() {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			log.Fatalf("config: unknown attendance timezone %q: %v", c.Timezone, err)
		}
		attLoc = loc
	})
	return attLoc
}

func init() {
	v := viper.New()

	// defaults
	v.SetDefault("appName", "Mahudhurio")
	v.SetDefault("debug", true)
	v.SetDefault("secretKey", "w&bx#0f)4pzj$qm2(h!x8c2y^$cegm2emy+57=dz&uoxh2vq")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("adminEmail", "")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.name", "mahudhurio")
	v.SetDefault("database.user", "mahudhurio")
	v.SetDefault("database.password", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.autoMigrate", true)

	v.SetDefault("attendance.graceBefore", time.Hour)
	v.SetDefault("attendance.graceAfter", time.Hour)
	v.SetDefault("attendance.sweepSpec", "0 9-23 * * *") // every hour from 9 AM to 11 PM
	v.SetDefault("attendance.timezone", "Asia/Riyadh")

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	v.SetDefault("env", env)
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		log.Fatalf("config.Unmarshal: %v", err)
	}
	conf.WorkDir = wd
	if from, err := mail.ParseAddress(v.GetString("defaultFromEmail")); err == nil {
		conf.DefaultFromEmail = *from
	} else {
		conf.DefaultFromEmail = mail.Address{Name: conf.AppName, Address: v.GetString("defaultFromEmail")}
	}
	Conf = conf
}
