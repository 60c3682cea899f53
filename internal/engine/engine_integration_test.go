package engine

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/sitemat/sitematgo/internal/database"
	"github.com/sitemat/sitematgo/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPort = 5439

var (
	testDB       *database.DB
	testPostgres *embeddedpostgres.EmbeddedPostgres
)

// TestMain starts one embedded PostgreSQL for the whole package. When the
// binaries cannot be fetched or started (offline CI), the DB-backed tests
// skip themselves and the pure tests still run.
func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "engine-test-pg")
	if err != nil {
		log.Printf("temp dir: %v", err)
		os.Exit(m.Run())
	}
	defer os.RemoveAll(dir)

	testPostgres = embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
		DataPath(filepath.Join(dir, "data")).
		RuntimePath(filepath.Join(dir, "runtime")).
		Port(testPort).
		Database("engine_test").
		Username("postgres").
		Password("postgres").
		Logger(nil))
	if err := testPostgres.Start(); err != nil {
		log.Printf("embedded postgres unavailable, DB tests will skip: %v", err)
		testPostgres = nil
		os.Exit(m.Run())
	}

	dsn := fmt.Sprintf("host=localhost port=%d user=postgres password=postgres dbname=engine_test sslmode=disable", testPort)
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		log.Printf("connecting to embedded postgres: %v", err)
		_ = testPostgres.Stop()
		testPostgres = nil
		os.Exit(m.Run())
	}

	testDB = database.Wrap(gdb)
	if err := testDB.AutoMigrate(
		&models.Project{}, &models.Activity{}, &models.ActivityMaterial{},
		&models.ActivityDependency{}, &models.Supplier{}, &models.Material{},
		&models.MaterialBatch{}, &models.InventoryMovement{},
		&models.PurchaseOrder{}, &models.PurchaseOrderLine{}, &models.Alert{},
	); err != nil {
		log.Printf("migrating test schema: %v", err)
		_ = testPostgres.Stop()
		testPostgres = nil
		testDB = nil
		os.Exit(m.Run())
	}

	code := m.Run()
	_ = testPostgres.Stop()
	os.Exit(code)
}

// newTestEngine wipes all tables and returns an engine frozen at a fixed
// date so day arithmetic in assertions is stable.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	if testDB == nil {
		t.Skip("embedded postgres not available")
	}

	for _, table := range []string{
		"alerts", "inventory_movements", "purchase_order_lines", "purchase_orders",
		"material_batches", "activity_dependencies", "activity_materials",
		"activities", "projects", "materials", "suppliers",
	} {
		if err := testDB.Exec("DELETE FROM " + table).Error; err != nil {
			t.Fatalf("wiping %s: %v", table, err)
		}
	}

	frozen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return New(testDB).WithClock(func() time.Time { return frozen })
}

func mustCreate(t *testing.T, value interface{}) {
	t.Helper()
	if err := testDB.Create(value).Error; err != nil {
		t.Fatalf("creating %T: %v", value, err)
	}
}

func datePtrAt(t time.Time) *time.Time { return &t }

func TestConfirmProgressUpdatesLedgerAndStock(t *testing.T) {
	eng := newTestEngine(t)
	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	project := models.Project{Name: "Obra", EstimatedEndDate: end, Status: models.ProjectActive}
	mustCreate(t, &project)
	activity := models.Activity{ProjectID: project.ID, Name: "Muros", RealProgress: 20}
	mustCreate(t, &activity)
	material := models.Material{Name: "Cemento", CurrentStock: 100, MinStock: 20}
	mustCreate(t, &material)
	link := models.ActivityMaterial{ActivityID: activity.ID, MaterialID: material.ID,
		EstimatedQty: 200, ConsumedQty: 40}
	mustCreate(t, &link)

	result, err := eng.ConfirmProgress(activity.ID, 50, []ConsumptionInput{
		{LinkID: link.ID, MaterialID: material.ID, Quantity: 30},
	})
	if err != nil {
		t.Fatalf("ConfirmProgress: %v", err)
	}
	if result.NewProgress != 50 {
		t.Errorf("NewProgress = %v, want 50", result.NewProgress)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}

	var gotMaterial models.Material
	testDB.First(&gotMaterial, material.ID)
	if gotMaterial.CurrentStock != 70 {
		t.Errorf("stock = %v, want 70", gotMaterial.CurrentStock)
	}

	var gotLink models.ActivityMaterial
	testDB.First(&gotLink, link.ID)
	if gotLink.ConsumedQty != 70 {
		t.Errorf("consumed = %v, want 70", gotLink.ConsumedQty)
	}

	var gotActivity models.Activity
	testDB.First(&gotActivity, activity.ID)
	if gotActivity.RealProgress != 50 {
		t.Errorf("real_progress = %v, want 50", gotActivity.RealProgress)
	}

	var movements int64
	testDB.Model(&models.InventoryMovement{}).
		Where("material_id = ? AND type = ?", material.ID, models.MovementOut).
		Count(&movements)
	if movements != 1 {
		t.Errorf("out movements = %d, want 1", movements)
	}

	// Project mean over its single activity
	var gotProject models.Project
	testDB.First(&gotProject, project.ID)
	if gotProject.OverallProgress != 50 {
		t.Errorf("overall_progress = %v, want 50", gotProject.OverallProgress)
	}
}

func TestConfirmProgressRejectsNonIncreasing(t *testing.T) {
	eng := newTestEngine(t)
	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	project := models.Project{Name: "Obra", EstimatedEndDate: end}
	mustCreate(t, &project)
	activity := models.Activity{ProjectID: project.ID, Name: "Muros", RealProgress: 40}
	mustCreate(t, &activity)

	if _, err := eng.ConfirmProgress(activity.ID, 40, nil); !IsValidation(err) {
		t.Errorf("equal progress: got %v, want validation error", err)
	}
	if _, err := eng.ConfirmProgress(activity.ID, 30, nil); !IsValidation(err) {
		t.Errorf("lower progress: got %v, want validation error", err)
	}
	if _, err := eng.ConfirmProgress(activity.ID, 101, nil); !IsValidation(err) {
		t.Errorf("over 100: got %v, want validation error", err)
	}
	if _, err := eng.ConfirmProgress(99999, 50, nil); err != ErrNotFound {
		t.Errorf("missing activity: got %v, want ErrNotFound", err)
	}
}

func TestConfirmProgressCapsToStock(t *testing.T) {
	eng := newTestEngine(t)
	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	project := models.Project{Name: "Obra", EstimatedEndDate: end}
	mustCreate(t, &project)
	activity := models.Activity{ProjectID: project.ID, Name: "Muros"}
	mustCreate(t, &activity)
	material := models.Material{Name: "Arena", CurrentStock: 10, MinStock: 5}
	mustCreate(t, &material)
	link := models.ActivityMaterial{ActivityID: activity.ID, MaterialID: material.ID, EstimatedQty: 100}
	mustCreate(t, &link)

	result, err := eng.ConfirmProgress(activity.ID, 30, []ConsumptionInput{
		{LinkID: link.ID, MaterialID: material.ID, Quantity: 25},
	})
	if err != nil {
		t.Fatalf("ConfirmProgress: %v", err)
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a capping warning")
	}

	// Stock lands at zero, never negative
	var gotMaterial models.Material
	testDB.First(&gotMaterial, material.ID)
	if gotMaterial.CurrentStock != 0 {
		t.Errorf("stock = %v, want 0", gotMaterial.CurrentStock)
	}
	var gotLink models.ActivityMaterial
	testDB.First(&gotLink, link.ID)
	if gotLink.ConsumedQty != 10 {
		t.Errorf("consumed = %v, want 10 (capped)", gotLink.ConsumedQty)
	}
}

func TestConfirmProgressWalksBatchesInFEFOOrder(t *testing.T) {
	eng := newTestEngine(t)
	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	project := models.Project{Name: "Obra", EstimatedEndDate: end}
	mustCreate(t, &project)
	activity := models.Activity{ProjectID: project.ID, Name: "Acabados"}
	mustCreate(t, &activity)
	material := models.Material{Name: "Aditivo", CurrentStock: 30, MinStock: 5, IsPerishable: true}
	mustCreate(t, &material)
	link := models.ActivityMaterial{ActivityID: activity.ID, MaterialID: material.ID, EstimatedQty: 50}
	mustCreate(t, &link)

	early := models.MaterialBatch{MaterialID: material.ID, BatchCode: "B1", Quantity: 12,
		ExpiryDate: datePtrAt(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)),
		IntakeDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Active: true}
	late := models.MaterialBatch{MaterialID: material.ID, BatchCode: "B2", Quantity: 18,
		ExpiryDate: datePtrAt(time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)),
		IntakeDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), Active: true}
	mustCreate(t, &early)
	mustCreate(t, &late)

	_, err := eng.ConfirmProgress(activity.ID, 40, []ConsumptionInput{
		{LinkID: link.ID, MaterialID: material.ID, Quantity: 15},
	})
	if err != nil {
		t.Fatalf("ConfirmProgress: %v", err)
	}

	// Earliest expiry drained first and deactivated
	var gotEarly, gotLate models.MaterialBatch
	testDB.First(&gotEarly, early.ID)
	testDB.First(&gotLate, late.ID)
	if gotEarly.Quantity != 0 || gotEarly.Active {
		t.Errorf("early batch = %v active=%v, want 0 inactive", gotEarly.Quantity, gotEarly.Active)
	}
	if gotLate.Quantity != 15 {
		t.Errorf("late batch = %v, want 15", gotLate.Quantity)
	}

	// One movement per touched batch
	var movements int64
	testDB.Model(&models.InventoryMovement{}).
		Where("material_id = ? AND batch_id IS NOT NULL", material.ID).
		Count(&movements)
	if movements != 2 {
		t.Errorf("batch movements = %d, want 2", movements)
	}
}

func TestRegenerateProjectAlertsIsIdempotent(t *testing.T) {
	eng := newTestEngine(t)
	end := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	supplier := models.Supplier{Name: "Proveedor", LeadTimeDays: 5}
	mustCreate(t, &supplier)
	project := models.Project{Name: "Obra", EstimatedEndDate: end, Status: models.ProjectActive}
	mustCreate(t, &project)
	activity := models.Activity{ProjectID: project.ID, Name: "Muros", RealProgress: 10}
	mustCreate(t, &activity)
	material := models.Material{Name: "Varilla", SupplierID: supplier.ID,
		CurrentStock: 10, MinStock: 50, IsCritical: true}
	mustCreate(t, &material)
	link := models.ActivityMaterial{ActivityID: activity.ID, MaterialID: material.ID, EstimatedQty: 300}
	mustCreate(t, &link)

	if err := eng.RegenerateProjectAlerts(project.ID); err != nil {
		t.Fatalf("first regeneration: %v", err)
	}
	var first int64
	testDB.Model(&models.Alert{}).Where("project_id = ?", project.ID).Count(&first)
	if first == 0 {
		t.Fatal("expected at least one alert for a below-minimum critical material")
	}

	var imminent models.Alert
	err := testDB.Where("project_id = ? AND type = ?", project.ID, models.AlertImminentStockout).
		First(&imminent).Error
	if err != nil {
		t.Fatalf("expected an imminent stock-out alert: %v", err)
	}
	if imminent.Severity != models.SeverityCritical {
		t.Errorf("severity = %q, want critical", imminent.Severity)
	}

	if err := eng.RegenerateProjectAlerts(project.ID); err != nil {
		t.Fatalf("second regeneration: %v", err)
	}
	var second int64
	testDB.Model(&models.Alert{}).Where("project_id = ?", project.ID).Count(&second)
	if second != first {
		t.Errorf("alert count changed across regenerations: %d -> %d", first, second)
	}

	// Acknowledged alerts survive regeneration
	testDB.Model(&models.Alert{}).
		Where("project_id = ?", project.ID).
		Limit(1).Update("status", models.AlertAcknowledged)
	if err := eng.RegenerateProjectAlerts(project.ID); err != nil {
		t.Fatalf("third regeneration: %v", err)
	}
	var acked int64
	testDB.Model(&models.Alert{}).
		Where("project_id = ? AND status = ?", project.ID, models.AlertAcknowledged).
		Count(&acked)
	if acked != 1 {
		t.Errorf("acknowledged alerts = %d, want 1", acked)
	}
}

func TestSimulateIsReadOnly(t *testing.T) {
	eng := newTestEngine(t)
	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	project := models.Project{Name: "Obra", EstimatedEndDate: end, OverallProgress: 30}
	mustCreate(t, &project)
	activity := models.Activity{ProjectID: project.ID, Name: "Muros", RealProgress: 30}
	mustCreate(t, &activity)
	material := models.Material{Name: "Cemento", CurrentStock: 100, MinStock: 40, UnitPrice: 10}
	mustCreate(t, &material)
	link := models.ActivityMaterial{ActivityID: activity.ID, MaterialID: material.ID,
		EstimatedQty: 200, ConsumedQty: 60}
	mustCreate(t, &link)

	report, err := eng.Simulate(project.ID, 70)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if report.SimulatedProgress != 70 {
		t.Errorf("SimulatedProgress = %v, want 70", report.SimulatedProgress)
	}
	if len(report.Materials) != 1 {
		t.Fatalf("materials = %d, want 1", len(report.Materials))
	}

	// Activity at 30 plus the 40-point delta: additional = 200*0.70 - 60 = 80
	sm := report.Materials[0]
	if sm.ProjectedConsumption != 80 {
		t.Errorf("ProjectedConsumption = %v, want 80", sm.ProjectedConsumption)
	}
	if sm.ProjectedStock != 20 {
		t.Errorf("ProjectedStock = %v, want 20", sm.ProjectedStock)
	}
	if sm.State != StateLow {
		t.Errorf("State = %q, want low (half of minimum)", sm.State)
	}
	if !sm.NeedsReorder {
		t.Error("expected NeedsReorder for projected stock below minimum")
	}

	// Rewinding below current progress is rejected
	if _, err := eng.Simulate(project.ID, 25); !IsValidation(err) {
		t.Errorf("regressed progress: got %v, want validation error", err)
	}

	// Nothing was written
	var gotMaterial models.Material
	testDB.First(&gotMaterial, material.ID)
	if gotMaterial.CurrentStock != 100 {
		t.Errorf("stock changed during simulation: %v", gotMaterial.CurrentStock)
	}
	var movements int64
	testDB.Model(&models.InventoryMovement{}).Count(&movements)
	if movements != 0 {
		t.Errorf("movements created during simulation: %d", movements)
	}
}

func TestRecordMovementRejectsOverdraw(t *testing.T) {
	eng := newTestEngine(t)

	material := models.Material{Name: "Sellador", CurrentStock: 5, MinStock: 2}
	mustCreate(t, &material)

	if _, err := eng.RecordMovement(MovementInput{
		MaterialID: material.ID, Type: models.MovementOut, Quantity: 8, Reason: "uso",
	}); !IsValidation(err) {
		t.Fatalf("overdraw: got %v, want validation error", err)
	}

	movement, err := eng.RecordMovement(MovementInput{
		MaterialID: material.ID, Type: models.MovementIn, Quantity: 10, Reason: "recepción",
	})
	if err != nil {
		t.Fatalf("inbound movement: %v", err)
	}
	if movement.ID == 0 {
		t.Error("movement was not persisted")
	}

	var gotMaterial models.Material
	testDB.First(&gotMaterial, material.ID)
	if gotMaterial.CurrentStock != 15 {
		t.Errorf("stock = %v, want 15", gotMaterial.CurrentStock)
	}
}
