package domain

import "time"

// AssetStatus 资产状态
type AssetStatus string

const (
	AssetOperational  AssetStatus = "operational"
	AssetMaintenance  AssetStatus = "maintenance"
	AssetOutOfService AssetStatus = "out_of_service"
	AssetRetired      AssetStatus = "retired"
)

func ValidAssetStatus(s AssetStatus) bool {
	switch s {
	case AssetOperational, AssetMaintenance, AssetOutOfService, AssetRetired:
		return true
	}
	return false
}

// Asset 设备资产领域模型（对应 assets 表）
// 计划通过资产解析归属部门，所以 department 在这里是权威字段
type Asset struct {
	AssetID      string      `db:"asset_id"` // UUID, PRIMARY KEY
	Name         string      `db:"name"`     // VARCHAR(200), NOT NULL
	Tag          string      `db:"tag"`      // 资产编号, UNIQUE
	SerialNumber string      `db:"serial_number"`
	Category     string      `db:"category"`
	Location     string      `db:"location"`
	Department   string      `db:"department"` // NOT NULL
	Status       AssetStatus `db:"status"`
	PurchaseDate *time.Time  `db:"purchase_date"`  // nullable
	WarrantyDate *time.Time  `db:"warranty_date"`  // nullable
	Notes        string      `db:"notes"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}
