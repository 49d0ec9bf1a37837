// Package domain contains the tenant business records.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Tenant is a gift-card merchant on the platform. GatewayKeySecret holds
// either an encrypted envelope or a legacy plaintext secret.
type Tenant struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	Code             string       `gorm:"type:text;not null;uniqueIndex:ux_tenants_code" json:"code"`
	Name             string       `gorm:"type:text;not null" json:"name"`
	Email            string       `gorm:"type:text;not null" json:"email"`
	Address          string       `gorm:"type:text;not null;default:''" json:"address"`
	GatewayKeyID     string       `gorm:"type:text;not null;default:''" json:"-"`
	GatewayKeySecret string       `gorm:"type:text;not null;default:''" json:"-"`
	InvoiceSeq       int64        `gorm:"not null;default:0" json:"-"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Tenant) TableName() string { return "tenants" }
