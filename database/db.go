package database

import (
	"fmt"
	"net"
	"strconv"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"marketplace-backend/config"
)

func dsn(cfg *config.Config, host string, port int) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		host, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, port, cfg.DB.SSLMode)
}

// Connect opens the primary postgres connection and registers read replicas, if any.
func Connect(cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn(cfg, cfg.DB.Host, cfg.DB.Port)), Config(log))
	if err != nil {
		return nil, errors.Wrap(err, "could not connect to database")
	}

	if hosts := cfg.ReplicaHosts(); len(hosts) > 0 {
		replicas := make([]gorm.Dialector, 0, len(hosts))
		for _, h := range hosts {
			host, port := splitHostPort(h, cfg.DB.Port)
			replicas = append(replicas, postgres.Open(dsn(cfg, host, port)))
		}
		if err := db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		})); err != nil {
			return nil, errors.Wrap(err, "register read replicas")
		}
		log.Info().Int("replicas", len(replicas)).Msg("read replicas registered")
	}
	return db, nil
}

// Config is the gorm configuration shared by production and test connections.
func Config(log zerolog.Logger) *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         NewGormLogger(log),
	}
}

func splitHostPort(hostport string, defPort int) (string, int) {
	host, p, err := net.SplitHostPort(hostport)
	if err != nil {
		return hostport, defPort
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return host, defPort
	}
	return host, port
}
