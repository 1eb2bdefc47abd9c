// Package persistence is the audit sink collaborator: trade snapshots
// and exit events are recorded to MySQL via GORM as append-only tables
// of signal-driven spot trades.
package persistence

import (
	"fmt"
	"math/big"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	safegmx "github.com/purvik6062/safegmx"
)

// TradeRecord is the database model for one snapshot of a trade's state.
type TradeRecord struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	TradeId        string    `gorm:"index;size:64;not null"`
	SignalId       string    `gorm:"index;size:64;not null"`
	CallerId       string    `gorm:"index;size:128;not null"`
	WalletAddress  string    `gorm:"index;size:42;not null"`
	NetworkKey     string    `gorm:"size:32;not null"`
	Side           string    `gorm:"size:8;not null"`
	State          string    `gorm:"size:32;not null"`
	EntryTxHash    string    `gorm:"size:80"`
	EntryFilledRaw string    `gorm:"type:varchar(78);comment:big.Int as string"`
	TotalGasCost   string    `gorm:"type:varchar(78);not null;comment:big.Int as string"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (TradeRecord) TableName() string { return "trades" }

// ExitEventRecord is the database model for one exit event.
type ExitEventRecord struct {
	ID                   uint      `gorm:"primaryKey;autoIncrement"`
	TradeId              string    `gorm:"index;size:64;not null"`
	Kind                 string    `gorm:"size:16;not null"`
	AmountRaw            string    `gorm:"type:varchar(78);not null;comment:big.Int as string"`
	PercentageOfPosition int64     `gorm:"not null"`
	TxHash               string    `gorm:"size:80"`
	At                   time.Time `gorm:"index;not null"`
	CreatedAt            time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM.
func (ExitEventRecord) TableName() string { return "exit_events" }

// Sink implements the audit-sink side of the Event Bus fan-out: each
// RecordTrade or RecordExitEvent call appends one row.
type Sink struct {
	db *gorm.DB
}

// New connects to MySQL and migrates the schema.
// dsn format: "user:password@tcp(host:port)/dbname?charset=utf8mb4&parseTime=True&loc=Local"
func New(dsn string) (*Sink, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		return nil, fmt.Errorf("persistence: connect to MySQL: %w", err)
	}
	return NewWithDB(db)
}

// NewWithDB wraps an existing *gorm.DB (used by tests with sqlmock).
func NewWithDB(db *gorm.DB) (*Sink, error) {
	if err := db.AutoMigrate(&TradeRecord{}, &ExitEventRecord{}); err != nil {
		return nil, fmt.Errorf("persistence: migrate schema: %w", err)
	}
	return &Sink{db: db}, nil
}

// RecordTrade inserts one snapshot of a trade's current state using an
// append-only pattern.
func (s *Sink) RecordTrade(trade *safegmx.Trade) error {
	var totalGas big.Int
	for _, g := range trade.GasLedger {
		if g.GasCostWei != nil {
			totalGas.Add(&totalGas, g.GasCostWei)
		}
	}

	record := TradeRecord{
		TradeId:        trade.TradeId,
		SignalId:       trade.SignalId,
		CallerId:       trade.CallerId,
		WalletAddress:  trade.WalletAddress,
		NetworkKey:     string(trade.NetworkKey),
		Side:           string(trade.Side),
		State:          string(trade.State),
		EntryTxHash:    trade.EntryTxHash,
		EntryFilledRaw: bigIntToString(trade.EntryFilledRaw),
		TotalGasCost:   totalGas.String(),
	}

	result := s.db.Create(&record)
	if result.Error != nil {
		return fmt.Errorf("persistence: record trade: %w", result.Error)
	}
	return nil
}

// RecordExitEvent appends one exit event row.
func (s *Sink) RecordExitEvent(tradeId string, event safegmx.ExitEvent) error {
	record := ExitEventRecord{
		TradeId:              tradeId,
		Kind:                 string(event.Kind),
		AmountRaw:            bigIntToString(event.AmountRaw),
		PercentageOfPosition: event.PercentageOfPosition,
		TxHash:               event.TxHash,
		At:                   event.At,
	}
	result := s.db.Create(&record)
	if result.Error != nil {
		return fmt.Errorf("persistence: record exit event: %w", result.Error)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Sink) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("persistence: get underlying DB: %w", err)
	}
	return sqlDB.Close()
}

func bigIntToString(value *big.Int) string {
	if value == nil {
		return "0"
	}
	return value.String()
}
