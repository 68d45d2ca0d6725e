package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address                   string
		Host                      string
		DebugHost                 string
		BodyLimit                 string
		AllowOrigins              []string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	StorageConfig struct {
		MediaRoot         string
		PhotoMaxDimension int
	}

	AdmissionConfig struct {
		Trades             []string
		PageSize           int
		ExportLimit        int
		RequireSCCDocument bool
	}

	// SiteConfig holds the hard-coded site content used when no override has been saved.
	SiteConfig struct {
		CollegeName     string
		Tagline         string
		Address         string
		Phone           string
		Email           string
		AffiliationCode string
	}

	Config struct {
		Env             string
		Build           string
		AppName         string
		Debug           bool
		TestMode        bool
		SecretKey       string
		FrontendBaseURL string
		RollbarToken    string
		SendgridApiKey  string
		DefaultFromName string
		DefaultFromAddr string

		Server    ServerConfig
		Database  DatabaseConfig
		Storage   StorageConfig
		Admission AdmissionConfig
		Site      SiteConfig
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.DefaultFromName, Address: c.DefaultFromAddr}
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("build", "dev")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "ITI Admissions")
	v.SetDefault("secretKey", "r8u1-kq)2nz$+07=vs&aqsl3(x!p)#*d4(#gf4h^$dwlm1ezt")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("defaultFromName", "Admissions Office")
	v.SetDefault("defaultFromAddr", "noreply@localhost")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.bodyLimit", "12M")
	v.SetDefault("server.allowOrigins", []string{"*"})
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 8*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 24*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "admissions")
	v.SetDefault("database.user", "admissions")
	v.SetDefault("database.password", "admissions")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("storage.mediaRoot", "media")
	v.SetDefault("storage.photoMaxDimension", 600)

	v.SetDefault("admission.trades", []string{
		"Electrician", "Fitter", "Welder", "Mechanic Motor Vehicle", "COPA", "Plumber", "Electronics Mechanic",
	})
	v.SetDefault("admission.pageSize", 10)
	v.SetDefault("admission.exportLimit", 10000)
	v.SetDefault("admission.requireSCCDocument", false)

	v.SetDefault("site.collegeName", "Government Industrial Training Institute")
	v.SetDefault("site.tagline", "Skilling youth for a better tomorrow")
	v.SetDefault("site.address", "Station Road, Patna, Bihar - 800001")
	v.SetDefault("site.phone", "+91 612 000 0000")
	v.SetDefault("site.email", "admissions@localhost")
	v.SetDefault("site.affiliationCode", "")
}

// NewConfig loads the configuration for the current ENV (DEV by default).
// Values come from defaults, then `config/.env.<env>` (if present), then environment variables
// prefixed with the ENV name, eg: DEV_SERVER_ADDRESS, PROD_DATABASE_PASSWORD.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	if wd, err := os.Getwd(); err == nil {
		dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:             env,
		Build:           v.GetString("build"),
		AppName:         v.GetString("appName"),
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		SecretKey:       v.GetString("secretKey"),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		RollbarToken:    v.GetString("rollbarToken"),
		SendgridApiKey:  v.GetString("sendgridApiKey"),
		DefaultFromName: v.GetString("defaultFromName"),
		DefaultFromAddr: v.GetString("defaultFromAddr"),
		Server: ServerConfig{
			Address:                   v.GetString("server.address"),
			Host:                      v.GetString("server.host"),
			DebugHost:                 v.GetString("server.debugHost"),
			BodyLimit:                 v.GetString("server.bodyLimit"),
			AllowOrigins:              v.GetStringSlice("server.allowOrigins"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Storage: StorageConfig{
			MediaRoot:         v.GetString("storage.mediaRoot"),
			PhotoMaxDimension: v.GetInt("storage.photoMaxDimension"),
		},
		Admission: AdmissionConfig{
			Trades:             v.GetStringSlice("admission.trades"),
			PageSize:           v.GetInt("admission.pageSize"),
			ExportLimit:        v.GetInt("admission.exportLimit"),
			RequireSCCDocument: v.GetBool("admission.requireSCCDocument"),
		},
		Site: SiteConfig{
			CollegeName:     v.GetString("site.collegeName"),
			Tagline:         v.GetString("site.tagline"),
			Address:         v.GetString("site.address"),
			Phone:           v.GetString("site.phone"),
			Email:           v.GetString("site.email"),
			AffiliationCode: v.GetString("site.affiliationCode"),
		},
	}
	if conf.Admission.PageSize <= 0 {
		conf.Admission.PageSize = 10
	}
	if conf.Admission.ExportLimit <= 0 {
		conf.Admission.ExportLimit = 10000
	}
	return conf
}

// NewTestConfig returns the default configuration in test mode, without reading the environment.
func NewTestConfig() *Config {
	conf := NewConfig()
	conf.Debug = false
	conf.TestMode = true
	conf.SecretKey = "secret"
	conf.Build = "test"
	return conf
}

func (c *Config) String() string {
	return fmt.Sprintf("%s (%s) env=%s debug=%t", c.AppName, c.Build, c.Env, c.Debug)
}
