package config

import (
	"sync"

	"github.com/shopspring/decimal"
)

// AppConfig holds global application configuration
var AppConfig *Config
var once sync.Once

type Config struct {
	AppName string
	Port    string
	Env     string
	Debug   bool

	Reservation ReservationPolicy
	Invoice     InvoiceSettings
	Audit       AuditSettings
}

// ReservationPolicy drives the due date of new reservations: a deposit of at
// least DepositRatio of the subtotal earns LongDays, anything less ShortDays.
type ReservationPolicy struct {
	DepositRatio decimal.Decimal
	LongDays     int
	ShortDays    int
	BusinessDays bool
}

type InvoiceSettings struct {
	CodePrefix string
}

// AuditSettings configures the optional fan-out sinks. Empty values disable them.
type AuditSettings struct {
	RedisChannel string
	KafkaBrokers []string
	KafkaTopic   string
}

// DefaultReservationPolicy is 20% deposit -> 30 business days, else 3.
func DefaultReservationPolicy() ReservationPolicy {
	return ReservationPolicy{
		DepositRatio: decimal.RequireFromString("0.20"),
		LongDays:     30,
		ShortDays:    3,
		BusinessDays: true,
	}
}

// FromEnv builds a Config from the current environment.
func FromEnv() *Config {
	def := DefaultReservationPolicy()
	return &Config{
		AppName: GetEnv("APP_NAME", "backoffice"),
		Port:    GetEnv("PORT", "8080"),
		Env:     GetEnv("APP_ENV", "production"),
		Debug:   GetEnvBool("DEBUG", false),
		Reservation: ReservationPolicy{
			DepositRatio: GetEnvDecimal("RESERVATION_DEPOSIT_RATIO", def.DepositRatio),
			LongDays:     GetEnvInt("RESERVATION_LONG_DAYS", def.LongDays),
			ShortDays:    GetEnvInt("RESERVATION_SHORT_DAYS", def.ShortDays),
			BusinessDays: GetEnvBool("RESERVATION_BUSINESS_DAYS", def.BusinessDays),
		},
		Invoice: InvoiceSettings{
			CodePrefix: GetEnv("INVOICE_CODE_PREFIX", "FAC"),
		},
		Audit: AuditSettings{
			RedisChannel: GetEnv("AUDIT_REDIS_CHANNEL", ""),
			KafkaBrokers: GetEnvList("AUDIT_KAFKA_BROKERS"),
			KafkaTopic:   GetEnv("AUDIT_KAFKA_TOPIC", "backoffice.audit"),
		},
	}
}

// LoadAppConfig initializes the global AppConfig variable
func LoadAppConfig() *Config {
	once.Do(func() {
		AppConfig = FromEnv()
	})
	return AppConfig
}
