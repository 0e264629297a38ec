package main

import (
	"fmt"
	"log"
	"time"

	"cmms-data/internal/config"
	"cmms-data/internal/database"

	"github.com/google/uuid"
)

// 开发种子数据：两个部门、一个平台管理员、每个部门一个管理员和一个技师，
// 外加示例资产。可重复执行（ON CONFLICT DO NOTHING）。
func main() {
	cfg := config.Load()
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	departments := []struct {
		name string
		head string
	}{
		{"Production", "Chen Wei"},
		{"Facilities", "Maria Lopez"},
	}
	for _, d := range departments {
		_, err := db.Exec(`
			INSERT INTO departments (department_id, name, head_name, active)
			VALUES ($1, $2, $3, TRUE)
			ON CONFLICT (name) DO NOTHING`,
			uuid.NewString(), d.name, d.head)
		if err != nil {
			log.Fatalf("Failed to seed department %s: %v", d.name, err)
		}
	}

	employees := []struct {
		name, email, department, role, level string
	}{
		{"System Admin", "sysadmin@cmms.local", "Production", "admin", "super_admin"},
		{"Chen Wei", "chen.wei@cmms.local", "Production", "manager", "department_admin"},
		{"Liu Yang", "liu.yang@cmms.local", "Production", "technician", "normal_user"},
		{"Maria Lopez", "maria.lopez@cmms.local", "Facilities", "manager", "department_admin"},
		{"Sam Carter", "sam.carter@cmms.local", "Facilities", "inspector", "normal_user"},
	}
	for _, e := range employees {
		_, err := db.Exec(`
			INSERT INTO employees (employee_id, name, email, department, role, access_level, skills, active)
			VALUES ($1, $2, $3, $4, $5, $6, '[]', TRUE)
			ON CONFLICT (email) DO NOTHING`,
			uuid.NewString(), e.name, e.email, e.department, e.role, e.level)
		if err != nil {
			log.Fatalf("Failed to seed employee %s: %v", e.name, err)
		}
	}

	assets := []struct {
		name, tag, category, location, department string
	}{
		{"CNC Lathe #1", "PRD-CNC-001", "machining", "Hall A", "Production"},
		{"Conveyor Line 2", "PRD-CNV-002", "conveyor", "Hall A", "Production"},
		{"HVAC Unit Roof-1", "FAC-HVAC-001", "hvac", "Roof", "Facilities"},
	}
	for _, a := range assets {
		_, err := db.Exec(`
			INSERT INTO assets (asset_id, name, tag, category, location, department, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, 'operational', $7, $7)
			ON CONFLICT (tag) DO NOTHING`,
			uuid.NewString(), a.name, a.tag, a.category, a.location, a.department, time.Now().UTC())
		if err != nil {
			log.Fatalf("Failed to seed asset %s: %v", a.name, err)
		}
	}

	fmt.Println("Seed data applied")
}
