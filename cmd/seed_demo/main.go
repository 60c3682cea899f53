package main

import (
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sitemat/sitematgo/internal/config"
	"github.com/sitemat/sitematgo/internal/database"
	"github.com/sitemat/sitematgo/internal/engine"
	"github.com/sitemat/sitematgo/internal/models"
)

func main() {
	fmt.Println("🌱 SiteMat Demo Data Seeder")

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	fmt.Println("✅ Connected to database")

	// Run migrations first
	fmt.Println("🔨 Running database migrations...")
	err = db.AutoMigrate(
		&models.Project{},
		&models.Activity{},
		&models.ActivityMaterial{},
		&models.ActivityDependency{},
		&models.Supplier{},
		&models.Material{},
		&models.MaterialBatch{},
		&models.InventoryMovement{},
		&models.PurchaseOrder{},
		&models.PurchaseOrderLine{},
		&models.Alert{},
	)
	if err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	fmt.Println("✅ Migrations complete")

	// Check if data already exists
	var materialCount int64
	db.Model(&models.Material{}).Count(&materialCount)
	if materialCount > 0 {
		fmt.Printf("⚠️  Database already has %d materials. Clear it first? (y/N): ", materialCount)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("❌ Aborted. Database not modified.")
			return
		}
		clearAll(db)
		fmt.Println("🧹 Cleared existing data")
	}

	now := time.Now()
	date := func(days int) time.Time { return now.AddDate(0, 0, days) }
	datePtr := func(days int) *time.Time { d := date(days); return &d }

	// Suppliers
	cementera := models.Supplier{Name: "Cementera del Norte", ContactName: "Laura Ríos",
		Phone: "555-0101", Email: "ventas@cemnorte.example", LeadTimeDays: 5}
	aceros := models.Supplier{Name: "Aceros Díaz", ContactName: "Pedro Díaz",
		Phone: "555-0102", Email: "pedidos@acerosdiaz.example", LeadTimeDays: 10}
	quimicos := models.Supplier{Name: "Químicos Vega", ContactName: "Ana Vega",
		Phone: "555-0103", Email: "info@quimvega.example", LeadTimeDays: 3}
	for _, s := range []*models.Supplier{&cementera, &aceros, &quimicos} {
		must(db.Create(s).Error)
	}
	fmt.Println("✅ Seeded 3 suppliers")

	// Materials
	cemento := models.Material{Name: "Cemento Portland", Unit: "bolsa", SupplierID: cementera.ID,
		CurrentStock: 120, MinStock: 80, MaxStock: 400, UnitPrice: 9.50, IsCritical: true}
	varilla := models.Material{Name: "Varilla 3/8\"", Unit: "pieza", SupplierID: aceros.ID,
		CurrentStock: 30, MinStock: 100, MaxStock: 600, UnitPrice: 4.20, IsCritical: true}
	arena := models.Material{Name: "Arena fina", Unit: "m3", SupplierID: cementera.ID,
		CurrentStock: 45, MinStock: 20, MaxStock: 120, UnitPrice: 18.00}
	aditivo := models.Material{Name: "Aditivo acelerante", Unit: "l", SupplierID: quimicos.ID,
		CurrentStock: 60, MinStock: 25, MaxStock: 150, UnitPrice: 6.75,
		IsPerishable: true, ExpiryWarningDays: 20, DefaultExpiryDate: datePtr(90)}
	sellador := models.Material{Name: "Sellador acrílico", Unit: "cubeta", SupplierID: quimicos.ID,
		CurrentStock: 18, MinStock: 10, MaxStock: 60, UnitPrice: 22.40,
		IsPerishable: true, ExpiryWarningDays: 15, DefaultExpiryDate: datePtr(45)}
	for _, m := range []*models.Material{&cemento, &varilla, &arena, &aditivo, &sellador} {
		must(db.Create(m).Error)
	}
	fmt.Println("✅ Seeded 5 materials")

	// Batches for the perishables, staggered expiry so FEFO has work to do
	batches := []models.MaterialBatch{
		{MaterialID: aditivo.ID, BatchCode: "AD-2401", Quantity: 25, ExpiryDate: datePtr(12), IntakeDate: date(-40), Active: true},
		{MaterialID: aditivo.ID, BatchCode: "AD-2402", Quantity: 35, ExpiryDate: datePtr(70), IntakeDate: date(-10), Active: true},
		{MaterialID: sellador.ID, BatchCode: "SE-2401", Quantity: 8, ExpiryDate: datePtr(5), IntakeDate: date(-30), Active: true},
		{MaterialID: sellador.ID, BatchCode: "SE-2402", Quantity: 10, ExpiryDate: nil, IntakeDate: date(-3), Active: true},
	}
	for i := range batches {
		must(db.Create(&batches[i]).Error)
	}
	fmt.Println("✅ Seeded 4 material batches")

	// Project with activities
	project := models.Project{
		Name:             "Edificio Mirador",
		Description:      "Torre residencial de 8 plantas",
		Location:         "Av. Central 450",
		StartDate:        datePtr(-60),
		EstimatedEndDate: date(120),
		TotalBudget:      850000,
		Status:           models.ProjectActive,
	}
	must(db.Create(&project).Error)

	cimentacion := models.Activity{ProjectID: project.ID, Name: "Cimentación",
		SortOrder: 1, PlannedProgress: 100, RealProgress: 100,
		PlannedStartDate: datePtr(-60), PlannedEndDate: datePtr(-30),
		RealStartDate: datePtr(-58), RealEndDate: datePtr(-28)}
	estructura := models.Activity{ProjectID: project.ID, Name: "Estructura",
		SortOrder: 2, PlannedProgress: 70, RealProgress: 45,
		PlannedStartDate: datePtr(-30), PlannedEndDate: datePtr(40)}
	albanileria := models.Activity{ProjectID: project.ID, Name: "Albañilería",
		SortOrder: 3, PlannedProgress: 20, RealProgress: 0,
		PlannedStartDate: datePtr(10), PlannedEndDate: datePtr(80)}
	acabados := models.Activity{ProjectID: project.ID, Name: "Acabados",
		SortOrder: 4, PlannedProgress: 0, RealProgress: 0,
		PlannedStartDate: datePtr(70), PlannedEndDate: datePtr(115)}
	for _, a := range []*models.Activity{&cimentacion, &estructura, &albanileria, &acabados} {
		must(db.Create(a).Error)
	}
	must(db.Model(&project).Update("overall_progress", 36.3).Error)
	fmt.Println("✅ Seeded 1 project with 4 activities")

	// Material links
	links := []models.ActivityMaterial{
		{ActivityID: estructura.ID, MaterialID: cemento.ID, EstimatedQty: 300, ConsumedQty: 140},
		{ActivityID: estructura.ID, MaterialID: varilla.ID, EstimatedQty: 500, ConsumedQty: 220},
		{ActivityID: albanileria.ID, MaterialID: cemento.ID, EstimatedQty: 180},
		{ActivityID: albanileria.ID, MaterialID: arena.ID, EstimatedQty: 60},
		{ActivityID: acabados.ID, MaterialID: sellador.ID, EstimatedQty: 30},
		{ActivityID: acabados.ID, MaterialID: aditivo.ID, EstimatedQty: 40},
	}
	for i := range links {
		must(db.Create(&links[i]).Error)
	}

	// Dependency edges: estructura gates the rest of the chain
	deps := []models.ActivityDependency{
		{ActivityID: estructura.ID, PredecessorID: cimentacion.ID, Type: models.DependencyFS},
		{ActivityID: albanileria.ID, PredecessorID: estructura.ID, Type: models.DependencyFS},
		{ActivityID: acabados.ID, PredecessorID: albanileria.ID, Type: models.DependencySS},
	}
	for i := range deps {
		must(db.Create(&deps[i]).Error)
	}
	fmt.Println("✅ Seeded material links and dependencies")

	// A pair of delivered orders per material so the price-variation rule
	// has two price points to compare
	older := models.PurchaseOrder{SupplierID: aceros.ID, IssueDate: date(-50),
		Status: models.OrderDelivered, DeliveredAt: datePtr(-42)}
	recent := models.PurchaseOrder{SupplierID: aceros.ID, IssueDate: date(-8),
		Status: models.OrderDelivered, DeliveredAt: datePtr(-1)}
	must(db.Create(&older).Error)
	must(db.Create(&recent).Error)
	lines := []models.PurchaseOrderLine{
		{OrderID: older.ID, MaterialID: varilla.ID, Quantity: 400, UnitPrice: decimal.NewFromFloat(3.80)},
		{OrderID: recent.ID, MaterialID: varilla.ID, Quantity: 200, UnitPrice: decimal.NewFromFloat(4.90)},
	}
	for i := range lines {
		must(db.Create(&lines[i]).Error)
	}
	fmt.Println("✅ Seeded 2 delivered orders with price history")

	// Movement trail so the stagnation rule sees real last-movement dates
	movements := []models.InventoryMovement{
		{MaterialID: cemento.ID, ProjectID: &project.ID, Type: models.MovementOut,
			Quantity: 40, Reason: "Consumo Estructura", Actor: "demo", OccurredAt: date(-5)},
		{MaterialID: varilla.ID, Type: models.MovementIn,
			Quantity: 200, Reason: "Recepción pedido", Actor: "demo", OccurredAt: date(-1)},
		{MaterialID: arena.ID, Type: models.MovementOut,
			Quantity: 5, Reason: "Consumo obra", Actor: "demo", OccurredAt: date(-70)},
	}
	for i := range movements {
		must(db.Create(&movements[i]).Error)
	}
	fmt.Println("✅ Seeded inventory movements")

	// Generate the initial alert sets
	eng := engine.New(db)
	if err := eng.RegenerateProjectAlerts(project.ID); err != nil {
		log.Printf("⚠️ Project alert generation: %v", err)
	}
	created, err := eng.RegenerateGlobalAlerts()
	if err != nil {
		log.Printf("⚠️ Global alert generation: %v", err)
	}

	var alertCount int64
	db.Model(&models.Alert{}).Where("status = ?", models.AlertPending).Count(&alertCount)
	fmt.Printf("🔔 %d pending alerts (%d global)\n", alertCount, created)
	fmt.Println("✅ Demo data ready")
}

func clearAll(db *database.DB) {
	tables := []interface{}{
		&models.Alert{}, &models.InventoryMovement{}, &models.PurchaseOrderLine{},
		&models.PurchaseOrder{}, &models.MaterialBatch{}, &models.ActivityDependency{},
		&models.ActivityMaterial{}, &models.Activity{}, &models.Project{},
		&models.Material{}, &models.Supplier{},
	}
	for _, t := range tables {
		must(db.Where("1 = 1").Delete(t).Error)
	}
}

func must(err error) {
	if err != nil {
		log.Fatalf("❌ Seed failed: %v", err)
	}
}
