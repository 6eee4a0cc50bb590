package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/cartbridge/backend/internal/domain/account"
)

// AccountModel is the persistence model for the Account domain entity.
type AccountModel struct {
	ID                uuid.UUID  `gorm:"type:uuid;primary_key"`
	Name              string     `gorm:"type:varchar(255);not null"`
	Username          string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_accounts_username"`
	Password          string     `gorm:"type:text;not null"`
	StoreID           string     `gorm:"type:varchar(20);not null"`
	Active            bool       `gorm:"not null;default:true;index"`
	LastRefreshAt     *time.Time `gorm:"index"`
	LastRefreshStatus string     `gorm:"type:varchar(20);not null;default:'pending'"`
	LastRefreshError  string     `gorm:"type:text"`
	CreatedAt         time.Time  `gorm:"not null"`
	UpdatedAt         time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain Account entity.
func (m *AccountModel) ToDomain() *account.Account {
	return &account.Account{
		ID:                m.ID,
		Name:              m.Name,
		Username:          m.Username,
		Password:          m.Password,
		StoreID:           m.StoreID,
		Active:            m.Active,
		LastRefreshAt:     m.LastRefreshAt,
		LastRefreshStatus: account.RefreshStatus(m.LastRefreshStatus),
		LastRefreshError:  m.LastRefreshError,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Account entity.
func (m *AccountModel) FromDomain(a *account.Account) {
	m.ID = a.ID
	m.Name = a.Name
	m.Username = a.Username
	m.Password = a.Password
	m.StoreID = a.StoreID
	m.Active = a.Active
	m.LastRefreshAt = a.LastRefreshAt
	m.LastRefreshStatus = string(a.LastRefreshStatus)
	m.LastRefreshError = a.LastRefreshError
	m.CreatedAt = a.CreatedAt
	m.UpdatedAt = a.UpdatedAt
}
