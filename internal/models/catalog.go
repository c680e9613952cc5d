package models

import "time"

// Role controls what a user may edit in the catalog.
type Role string

const (
	RoleViewer  Role = "viewer"
	RoleCurator Role = "curator"
	RoleAdmin   Role = "admin"
)

// Sensitivity classifies how freely data may be shared.
type Sensitivity string

const (
	SensitivityPublic       Sensitivity = "public"
	SensitivityInternal     Sensitivity = "internal"
	SensitivityConfidential Sensitivity = "confidential"
	SensitivityPII          Sensitivity = "pii"
)

// TableType is the warehouse role of a table.
type TableType string

const (
	TableTypeFact      TableType = "fact"
	TableTypeDimension TableType = "dimension"
	TableTypeReference TableType = "reference"
	TableTypeStaging   TableType = "staging"
	TableTypeRaw       TableType = "raw"
	TableTypeView      TableType = "view"
)

// User is a catalog account.
type User struct {
	ID           string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name         string    `gorm:"size:255" json:"name"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         Role      `gorm:"size:50;default:viewer" json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DatabaseMetadata describes one cataloged database.
type DatabaseMetadata struct {
	ID               string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DatabaseName     string      `gorm:"uniqueIndex;size:255;not null" json:"name"`
	BusinessDomain   string      `gorm:"size:255" json:"businessDomain,omitempty"`
	Description      string      `gorm:"type:text" json:"description,omitempty"`
	Sensitivity      Sensitivity `gorm:"size:50;default:internal" json:"sensitivity"`
	Owner            string      `gorm:"size:255" json:"owner,omitempty"`
	RefreshFrequency string      `gorm:"size:100" json:"refreshFrequency,omitempty"`
	SourceSystems    string      `gorm:"type:text" json:"sourceSystems,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`

	Tables []TableMetadata `gorm:"foreignKey:DatabaseID;constraint:OnDelete:CASCADE" json:"tables,omitempty"`
}

// TableMetadata describes one cataloged table.
type TableMetadata struct {
	ID              string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DatabaseID      string      `gorm:"type:uuid;index;not null" json:"databaseId"`
	TechnicalName   string      `gorm:"uniqueIndex;size:255;not null" json:"technicalName"`
	DisplayName     string      `gorm:"size:255" json:"displayName,omitempty"`
	Description     string      `gorm:"type:text" json:"description,omitempty"`
	TableType       TableType   `gorm:"size:50;default:raw" json:"tableType"`
	BusinessPurpose string      `gorm:"type:text" json:"businessPurpose,omitempty"`
	Status          string      `gorm:"size:50;default:active" json:"status"`
	PrimaryKey      string      `gorm:"size:255" json:"primaryKey,omitempty"`
	ForeignKeys     string      `gorm:"type:text" json:"foreignKeys,omitempty"`
	Owner           string      `gorm:"size:255" json:"owner,omitempty"`
	DataSensitivity Sensitivity `gorm:"size:50;default:internal" json:"dataSensitivity"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`

	Columns []ColumnMetadata `gorm:"foreignKey:TableID;constraint:OnDelete:CASCADE" json:"columns,omitempty"`
}

// ColumnMetadata describes one column of a cataloged table.
type ColumnMetadata struct {
	ID              string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TableID         string    `gorm:"type:uuid;not null;uniqueIndex:idx_table_column" json:"tableId"`
	ColumnName      string    `gorm:"size:255;not null;uniqueIndex:idx_table_column" json:"columnName"`
	DataType        string    `gorm:"size:255" json:"dataType,omitempty"`
	Description     string    `gorm:"type:text" json:"description,omitempty"`
	IsPrimaryKey    bool      `json:"isPrimaryKey"`
	IsForeignKey    bool      `json:"isForeignKey"`
	IsNullable      bool      `gorm:"default:true" json:"isNullable"`
	IsPII           bool      `json:"isPii"`
	Cardinality     string    `gorm:"size:100" json:"cardinality,omitempty"`
	ValidValues     string    `gorm:"type:text" json:"validValues,omitempty"`
	ExampleValue    string    `gorm:"size:255" json:"exampleValue,omitempty"`
	DownstreamUsage string    `gorm:"type:text" json:"downstreamUsage,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// AuditLog records a catalog edit for traceability.
type AuditLog struct {
	ID         string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID     string    `gorm:"type:uuid;index" json:"userId"`
	ActionType string    `gorm:"size:100;not null" json:"actionType"`
	TargetType string    `gorm:"size:100;not null" json:"targetType"`
	TargetID   string    `gorm:"type:uuid" json:"targetId,omitempty"`
	Before     string    `gorm:"type:text" json:"before,omitempty"`
	After      string    `gorm:"type:text" json:"after,omitempty"`
	Timestamp  time.Time `gorm:"autoCreateTime" json:"timestamp"`
}

// TableName overrides keep the table names aligned with the original
// catalog schema.
func (DatabaseMetadata) TableName() string { return "database_metadata" }
func (TableMetadata) TableName() string    { return "table_metadata" }
func (ColumnMetadata) TableName() string   { return "column_metadata" }
func (AuditLog) TableName() string         { return "audit_logs" }
