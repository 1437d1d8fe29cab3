package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config carries all application settings. The relational metadata store and
// object storage integrations are optional; their *Configured() helpers report
// whether credentials were provided.
type Config struct {
	Debug    bool
	TestMode bool
	Env      string
	AppName  string
	Build    string

	SecretKey string

	Server struct {
		Host                      string
		Addr                      string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	// Auth is the hosted identity provider (email/password).
	Auth struct {
		APIKey string
	}

	// Docstore is the hosted document store holding profiles, subjects,
	// assignments and exams.
	Docstore struct {
		ProjectID       string
		CredentialsFile string
	}

	// Database is the relational store holding notes metadata.
	Database struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          int
		DisableTLS    bool
	}

	// ObjectStorage holds uploaded note files.
	ObjectStorage struct {
		Endpoint        string
		Bucket          string
		AccessKeyID     string
		AccessKeySecret string
		PublicBaseURL   string
	}

	RollbarToken string
}

func (c *Config) DatabaseAddress() string {
	return net.JoinHostPort(c.Database.Host, strconv.Itoa(c.Database.Port))
}

func (c *Config) DocstoreConfigured() bool {
	return c.Docstore.ProjectID != ""
}

func (c *Config) DatabaseConfigured() bool {
	return c.Database.Name != "" && c.Database.Host != ""
}

func (c *Config) ObjectStorageConfigured() bool {
	return c.ObjectStorage.Bucket != "" && c.ObjectStorage.Endpoint != ""
}

// NewConfig loads the configuration from the environment.
// A config/.env.<env> file is loaded first if it exists.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "StudyHub")
	v.SetDefault("secretKey", "w3lp$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddr", ":8000")
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databasePort", 5432)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		Env:          env,
		AppName:      v.GetString("appName"),
		Build:        v.GetString("build"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
	}
	conf.Server.Host = v.GetString("serverHost")
	conf.Server.Addr = v.GetString("serverAddr")
	conf.Server.JWTExpirationDelta = v.GetDuration("jwtExpirationDelta")
	conf.Server.JWTRefreshExpirationDelta = v.GetDuration("jwtRefreshExpirationDelta")

	conf.Auth.APIKey = v.GetString("authApiKey")

	conf.Docstore.ProjectID = v.GetString("docstoreProjectId")
	conf.Docstore.CredentialsFile = v.GetString("docstoreCredentialsFile")

	conf.Database.Engine = v.GetString("databaseEngine")
	conf.Database.Name = v.GetString("databaseName")
	conf.Database.User = v.GetString("databaseUser")
	conf.Database.Password = v.GetString("databasePassword")
	conf.Database.AdminUser = v.GetString("databaseAdminUser")
	conf.Database.AdminPassword = v.GetString("databaseAdminPassword")
	conf.Database.Host = v.GetString("databaseHost")
	conf.Database.Port = v.GetInt("databasePort")
	conf.Database.DisableTLS = v.GetBool("databaseDisableTls")

	conf.ObjectStorage.Endpoint = v.GetString("objectStorageEndpoint")
	conf.ObjectStorage.Bucket = v.GetString("objectStorageBucket")
	conf.ObjectStorage.AccessKeyID = v.GetString("objectStorageAccessKeyId")
	conf.ObjectStorage.AccessKeySecret = v.GetString("objectStorageAccessKeySecret")
	conf.ObjectStorage.PublicBaseURL = v.GetString("objectStoragePublicBaseUrl")

	return conf
}
