package products

import (
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lendkeeper/lendkeeper/internal/apperr"
	"github.com/lendkeeper/lendkeeper/internal/audit"
	"github.com/lendkeeper/lendkeeper/internal/barcode"
	"github.com/lendkeeper/lendkeeper/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.ProductInstance{},
		&models.Loan{},
		&models.AuditLog{},
	)
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func testService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db := setupTestDB(t)

	return NewService(db, audit.NewService(db, 90)), db
}

func seedProduct(t *testing.T, s *Service, name string) *models.Product {
	t.Helper()

	product, err := s.CreateProduct(&CreateProductInput{
		Name:         name,
		Manufacturer: "Acme",
		Model:        "M1",
		Category:     "mobility",
	}, "tester")
	require.NoError(t, err)

	return product
}

func TestCreateProduct(t *testing.T) {
	service, _ := testService(t)

	product := seedProduct(t, service, "Wheelchair")
	assert.NotEmpty(t, product.ID)

	// Same identity triple is a conflict.
	_, err := service.CreateProduct(&CreateProductInput{
		Name: "Wheelchair", Manufacturer: "Acme", Model: "M1",
	}, "tester")
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	// A different model is a different product.
	_, err = service.CreateProduct(&CreateProductInput{
		Name: "Wheelchair", Manufacturer: "Acme", Model: "M2",
	}, "tester")
	assert.NoError(t, err)
}

func TestUpdateProduct(t *testing.T) {
	service, _ := testService(t)

	first := seedProduct(t, service, "Wheelchair")
	second := seedProduct(t, service, "Walker")

	category := "rehab"
	updated, err := service.UpdateProduct(first.ID, &UpdateProductInput{
		Category: &category,
	}, "tester")
	require.NoError(t, err)
	assert.Equal(t, "rehab", updated.Category)

	// Renaming onto another product's identity is a conflict.
	name := "Wheelchair"
	_, err = service.UpdateProduct(second.ID, &UpdateProductInput{Name: &name}, "tester")
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = service.UpdateProduct("00000000-0000-0000-0000-000000000000",
		&UpdateProductInput{}, "tester")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestListProducts(t *testing.T) {
	service, _ := testService(t)

	seedProduct(t, service, "Wheelchair")
	seedProduct(t, service, "Walker")

	_, err := service.CreateProduct(&CreateProductInput{
		Name: "Hearing Aid", Manufacturer: "Sonic", Model: "H1", Category: "hearing",
	}, "tester")
	require.NoError(t, err)

	products, total, err := service.ListProducts(ProductFilters{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, products, 3)

	_, total, err = service.ListProducts(ProductFilters{Category: "mobility"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, total, err = service.ListProducts(ProductFilters{Search: "Walk"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	products, total, err = service.ListProducts(ProductFilters{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, products, 1)
}

func TestCreateInstance(t *testing.T) {
	service, _ := testService(t)
	product := seedProduct(t, service, "Wheelchair")

	instance, err := service.CreateInstance(product.ID, &CreateInstanceInput{
		Barcode:      "LK-CUSTOM1",
		SerialNumber: "SN-1",
		Location:     "shelf 3",
	}, "tester")
	require.NoError(t, err)
	assert.Equal(t, "LK-CUSTOM1", instance.Barcode)
	assert.Equal(t, models.ConditionGood, instance.Condition)
	assert.True(t, instance.IsAvailable)

	// Duplicate barcode is a conflict.
	_, err = service.CreateInstance(product.ID, &CreateInstanceInput{
		Barcode: "LK-CUSTOM1",
	}, "tester")
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	// Unknown product.
	_, err = service.CreateInstance("00000000-0000-0000-0000-000000000000",
		&CreateInstanceInput{}, "tester")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCreateInstanceGeneratesBarcode(t *testing.T) {
	service, _ := testService(t)
	product := seedProduct(t, service, "Wheelchair")

	instance, err := service.CreateInstance(product.ID, &CreateInstanceInput{}, "tester")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(instance.Barcode, barcode.Prefix))
	assert.Len(t, instance.Barcode, len(barcode.Prefix)+barcode.CodeLen)
}

func TestGetInstanceByBarcode(t *testing.T) {
	service, _ := testService(t)
	product := seedProduct(t, service, "Wheelchair")

	created, err := service.CreateInstance(product.ID, &CreateInstanceInput{
		Barcode: "LK-CUSTOM1",
	}, "tester")
	require.NoError(t, err)

	found, err := service.GetInstanceByBarcode("LK-CUSTOM1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "Wheelchair", found.Product.Name)

	_, err = service.GetInstanceByBarcode("NO-SUCH")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestListInstances(t *testing.T) {
	service, _ := testService(t)
	product := seedProduct(t, service, "Wheelchair")

	_, err := service.CreateInstance(product.ID, &CreateInstanceInput{
		Barcode: "LK-A", Location: "shelf 1",
	}, "tester")
	require.NoError(t, err)

	poor, err := service.CreateInstance(product.ID, &CreateInstanceInput{
		Barcode: "LK-B", Condition: models.ConditionPoor, Location: "shelf 2",
	}, "tester")
	require.NoError(t, err)

	unavailable := false
	_, err = service.UpdateInstance(poor.ID, &UpdateInstanceInput{
		IsAvailable: &unavailable,
	}, "tester")
	require.NoError(t, err)

	instances, err := service.ListInstances(InstanceFilters{ProductID: product.ID})
	require.NoError(t, err)
	assert.Len(t, instances, 2)

	instances, err = service.ListInstances(InstanceFilters{Condition: models.ConditionPoor})
	require.NoError(t, err)
	require.Len(t, instances, 1)
	assert.Equal(t, "LK-B", instances[0].Barcode)

	available := true
	instances, err = service.ListInstances(InstanceFilters{IsAvailable: &available})
	require.NoError(t, err)
	require.Len(t, instances, 1)
	assert.Equal(t, "LK-A", instances[0].Barcode)
}

func TestUpdateInstanceBarcodeConflict(t *testing.T) {
	service, _ := testService(t)
	product := seedProduct(t, service, "Wheelchair")

	_, err := service.CreateInstance(product.ID, &CreateInstanceInput{Barcode: "LK-A"}, "tester")
	require.NoError(t, err)

	second, err := service.CreateInstance(product.ID, &CreateInstanceInput{Barcode: "LK-B"}, "tester")
	require.NoError(t, err)

	taken := "LK-A"
	_, err = service.UpdateInstance(second.ID, &UpdateInstanceInput{Barcode: &taken}, "tester")
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

// seedOpenLoan places an instance on an open loan directly.
func seedOpenLoan(t *testing.T, db *gorm.DB, instanceID string) {
	t.Helper()

	user := &models.User{
		Email: "borrower@example.org", Password: "irrelevant",
		FirstName: "Dana", LastName: "Borrower",
		Role: models.RoleClient, IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)

	require.NoError(t, db.Create(&models.Loan{
		UserID:            user.ID,
		ProductInstanceID: instanceID,
		Status:            models.LoanActive,
	}).Error)
	require.NoError(t, db.Model(&models.ProductInstance{}).
		Where("id = ?", instanceID).Update("is_available", false).Error)
}

func TestDeleteBlockedByOpenLoan(t *testing.T) {
	service, db := testService(t)
	product := seedProduct(t, service, "Wheelchair")

	instance, err := service.CreateInstance(product.ID, &CreateInstanceInput{Barcode: "LK-A"}, "tester")
	require.NoError(t, err)

	seedOpenLoan(t, db, instance.ID)

	err = service.DeleteInstance(instance.ID, "tester")
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	err = service.DeleteProduct(product.ID, "tester")
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	// Close the loan; deletion goes through and removes the instances.
	require.NoError(t, db.Model(&models.Loan{}).
		Where("product_instance_id = ?", instance.ID).
		Update("status", models.LoanReturned).Error)

	require.NoError(t, service.DeleteProduct(product.ID, "tester"))

	_, err = service.GetInstance(instance.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestGetAvailability(t *testing.T) {
	service, db := testService(t)
	product := seedProduct(t, service, "Wheelchair")

	onLoan, err := service.CreateInstance(product.ID, &CreateInstanceInput{Barcode: "LK-A"}, "tester")
	require.NoError(t, err)

	_, err = service.CreateInstance(product.ID, &CreateInstanceInput{Barcode: "LK-B"}, "tester")
	require.NoError(t, err)

	seedOpenLoan(t, db, onLoan.ID)

	availability, err := service.GetAvailability(product.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(2), availability.Total)
	assert.Equal(t, int64(1), availability.Available)
	assert.Equal(t, int64(1), availability.OnLoan)
}
