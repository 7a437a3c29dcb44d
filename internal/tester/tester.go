package tester

import (
	"context"
	"os"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Natural-Intelligence/be-revisable/internal/model"
	"github.com/Natural-Intelligence/be-revisable/internal/registry"
)

const (
	testPath = "../../.test/"

	// ExampleEntityType is registered as deprecatable.
	ExampleEntityType = "ExampleRecord"
	// BasicEntityType is registered without the deprecatable capability.
	BasicEntityType = "BasicRecord"
)

var (
	db  *gorm.DB
	reg *registry.Registry
)

// ExampleRecord is the revision payload used by the tests. Revision metadata
// never lives here; the record only carries content.
type ExampleRecord struct {
	gorm.Model
	ID    string `gorm:"primaryKey;uuid;not null"`
	Value string
}

func (ExampleRecord) TableName() string {
	return "example_records"
}

func Setup() {
	RemoveDBFile()

	_ = os.Setenv("ENV", "test")

	err := os.MkdirAll(testPath+"/db", os.ModePerm)
	if err != nil {
		panic(err)
	}

	db, err = gorm.Open(sqlite.Open(testPath+"db/revisable.db"), &gorm.Config{})
	if err != nil {
		panic(err)
	}

	err = model.Migrate(db)
	if err != nil {
		panic(err)
	}

	err = db.AutoMigrate(&ExampleRecord{})
	if err != nil {
		panic(err)
	}

	reg = registry.New()
	repo := &ExampleRecordRepository{DB: db}
	for entityType, deprecatable := range map[string]bool{
		ExampleEntityType: true,
		BasicEntityType:   false,
	} {
		err = reg.Register(registry.Binding{
			EntityType:   entityType,
			Payloads:     repo,
			Deprecatable: deprecatable,
		})
		if err != nil {
			panic(err)
		}
	}
}

func TestDB() *gorm.DB {
	return db
}

func Registry() *registry.Registry {
	return reg
}

func RemoveDBFile() {
	err := os.RemoveAll(testPath)
	if err != nil {
		panic(err)
	}
}

// CreateExampleRecord inserts a payload row and returns its ID.
func CreateExampleRecord(value string) string {
	record := &ExampleRecord{ID: uuid.New().String(), Value: value}
	if err := db.Create(record).Error; err != nil {
		panic(err)
	}
	return record.ID
}

// ExampleRecordValue reads a payload row's content.
func ExampleRecordValue(id string) string {
	var record ExampleRecord
	if err := db.Where("id = ?", id).First(&record).Error; err != nil {
		panic(err)
	}
	return record.Value
}

var _ registry.PayloadRepository = (*ExampleRecordRepository)(nil)

// ExampleRecordRepository clones and destroys example payloads, the way a
// host application supplies payload handling for its own entity types.
type ExampleRecordRepository struct {
	DB *gorm.DB
}

func (r *ExampleRecordRepository) Clone(ctx context.Context, payloadID string) (string, error) {
	var source ExampleRecord
	if err := r.DB.WithContext(ctx).Where("id = ?", payloadID).First(&source).Error; err != nil {
		return "", err
	}

	clone := &ExampleRecord{ID: uuid.New().String(), Value: source.Value}
	if err := r.DB.WithContext(ctx).Create(clone).Error; err != nil {
		return "", err
	}

	return clone.ID, nil
}

func (r *ExampleRecordRepository) Destroy(ctx context.Context, payloadID string) error {
	return r.DB.WithContext(ctx).Where("id = ?", payloadID).Delete(&ExampleRecord{}).Error
}
