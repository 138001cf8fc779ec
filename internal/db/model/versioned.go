package model

import (
	"fmt"

	"golang.org/x/mod/semver"
)

// SchemaVersion is stamped on every document written by this binary. Fields
// are only ever added within a major version.
const SchemaVersion = "v2.0.0"

// Versioned carries the schema version and the optimistic concurrency counter.
// Version 0 means the document has not been stored yet.
type Versioned struct {
	SchemaVersion string `bson:"schema_version" gorm:"column:schema_version"`
	Version       int64  `bson:"version" gorm:"column:version"`
}

func (v *Versioned) GetVersion() int64 {
	return v.Version
}

func (v *Versioned) SetVersion(version int64) {
	v.Version = version
	v.SchemaVersion = SchemaVersion
}

// VersionedDocument is implemented by every document saved with an expected version.
type VersionedDocument interface {
	Key() string
	GetVersion() int64
	SetVersion(version int64)
}

// CheckSchemaVersion reports whether a store written by schema stored can be
// used by this binary.
func CheckSchemaVersion(stored string) error {
	if stored == "" {
		return nil
	}
	if !semver.IsValid(stored) {
		return fmt.Errorf("stored schema version %q is not a valid semver", stored)
	}
	if semver.Major(stored) != semver.Major(SchemaVersion) {
		return fmt.Errorf("stored schema version %s is incompatible with %s", stored, SchemaVersion)
	}
	if semver.Compare(stored, SchemaVersion) > 0 {
		return fmt.Errorf("stored schema version %s is newer than %s", stored, SchemaVersion)
	}
	return nil
}

const SchemaInfoCollection = "schema_info"

const schemaInfoID = "schema"

type SchemaInfoDocument struct {
	ID      string `bson:"_id" gorm:"column:id;primaryKey"`
	Version string `bson:"version" gorm:"column:version"`
}

func (SchemaInfoDocument) TableName() string { return SchemaInfoCollection }

func NewSchemaInfoDocument() *SchemaInfoDocument {
	return &SchemaInfoDocument{ID: schemaInfoID, Version: SchemaVersion}
}

func ParticipantKey(poolID, participant string) string {
	return poolID + "/" + participant
}

func EpochKey(poolID string, number uint64) string {
	return fmt.Sprintf("%s/%d", poolID, number)
}
