package domain

import "time"

// Part 备件库存领域模型（对应 parts 表）
type Part struct {
	PartID      string    `db:"part_id"`     // UUID, PRIMARY KEY
	Name        string    `db:"name"`        // VARCHAR(200), NOT NULL
	PartNumber  string    `db:"part_number"` // UNIQUE
	Category    string    `db:"category"`
	Department  string    `db:"department"` // NOT NULL
	Quantity    int       `db:"quantity"`
	MinQuantity int       `db:"min_quantity"` // 低于等于该值进入缺货列表
	UnitCost    float64   `db:"unit_cost"`
	Location    string    `db:"location"` // 库位
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// LowStock 是否缺货
func (p *Part) LowStock() bool {
	return p.Quantity <= p.MinQuantity
}
