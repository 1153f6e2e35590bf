// schema.go table role detection and column mapping heuristics
package migration

import (
	"strings"

	"github.com/kitabu/kitabu-go/internal/legacy"
)

// EntityRole names the domain entity a source table is believed to hold.
type EntityRole string

const (
	RoleBooks      EntityRole = "books"
	RoleStudents   EntityRole = "students"
	RoleBorrowings EntityRole = "borrowings"
	RoleCategories EntityRole = "categories"
	RoleFines      EntityRole = "fines"
)

// DetectionStatus reports how completely a table matched its winning rule.
type DetectionStatus string

const (
	// StatusMapped means every field the rule defines found a source column.
	StatusMapped DetectionStatus = "mapped"
	// StatusPartial means fewer field mappings were found than the rule defines.
	StatusPartial DetectionStatus = "partial"
	// StatusUnmapped means the table scored zero against every rule and is
	// excluded from automatic import.
	StatusUnmapped DetectionStatus = "unmapped"
)

// ColumnMapping binds one source column to one target field. All record
// access after detection goes through these mappings; records are never
// probed by ad-hoc column names during import.
type ColumnMapping struct {
	SourceColumn   string
	TargetField    string
	DataKind       string
	Required       bool
	NeedsTransform bool
}

// TableDetection is the prober's verdict for one source table.
type TableDetection struct {
	SourceTable   string
	TargetEntity  EntityRole
	FieldMappings []ColumnMapping
	RecordCount   int64
	Status        DetectionStatus
	Score         int
	PrimaryKey    string // name of the source primary key column, if declared
}

// SourceColumn returns the source column mapped to a target field, or "".
func (d *TableDetection) SourceColumn(targetField string) string {
	for i := range d.FieldMappings {
		if d.FieldMappings[i].TargetField == targetField {
			return d.FieldMappings[i].SourceColumn
		}
	}
	return ""
}

// fieldRule declares one expected target field and the source column name
// synonyms that can satisfy it, in decreasing order of preference.
type fieldRule struct {
	Target         string
	Kind           string
	Required       bool
	NeedsTransform bool
	Synonyms       []string
}

// roleRule scores a source table against one entity role: 10 points per
// table-name pattern hit plus 1 point per loosely matched column.
type roleRule struct {
	Entity        EntityRole
	TablePatterns []string
	Fields        []fieldRule
}

// roleRules in priority order; ties keep the earlier rule.
var roleRules = []roleRule{
	{
		Entity:        RoleBooks,
		TablePatterns: []string{"book", "title", "catalog"},
		Fields: []fieldRule{
			{Target: "title", Kind: "string", Required: true, Synonyms: []string{"title", "book_title", "book_name"}},
			{Target: "author", Kind: "string", Synonyms: []string{"author", "writer", "authors"}},
			{Target: "isbn", Kind: "string", Synonyms: []string{"isbn"}},
			{Target: "category", Kind: "string", NeedsTransform: true, Synonyms: []string{"category", "cat", "genre", "subject"}},
			{Target: "publisher", Kind: "string", Synonyms: []string{"publisher", "pub"}},
			{Target: "year", Kind: "int", Synonyms: []string{"year", "published", "publication"}},
			{Target: "available", Kind: "bool", NeedsTransform: true, Synonyms: []string{"available", "avail", "in_stock", "status"}},
			{Target: "shelf", Kind: "string", Synonyms: []string{"shelf", "location", "rack"}},
		},
	},
	{
		Entity:        RoleStudents,
		TablePatterns: []string{"student", "member", "borrower", "pupil"},
		Fields: []fieldRule{
			{Target: "admission_number", Kind: "string", Required: true, Synonyms: []string{"admission", "adm_no", "admno", "reg_no", "member_no", "roll"}},
			{Target: "name", Kind: "string", Required: true, NeedsTransform: true, Synonyms: []string{"name", "fullname", "student_name", "member_name"}},
			{Target: "first_name", Kind: "string", Synonyms: []string{"first_name", "firstname", "fname"}},
			{Target: "last_name", Kind: "string", Synonyms: []string{"last_name", "lastname", "surname", "lname"}},
			{Target: "date_of_birth", Kind: "date", NeedsTransform: true, Synonyms: []string{"dob", "birth", "date_of_birth"}},
			{Target: "class", Kind: "string", NeedsTransform: true, Synonyms: []string{"class", "form", "grade", "stream"}},
			{Target: "year", Kind: "int", Synonyms: []string{"year", "admission_year", "adm_year"}},
			{Target: "email", Kind: "string", Synonyms: []string{"email", "mail"}},
			{Target: "phone", Kind: "string", Synonyms: []string{"phone", "tel", "mobile", "contact"}},
		},
	},
	{
		Entity:        RoleBorrowings,
		TablePatterns: []string{"borrow", "issue", "loan", "circulation", "lend"},
		Fields: []fieldRule{
			{Target: "student_ref", Kind: "int", Required: true, Synonyms: []string{"member", "student", "borrower", "adm"}},
			{Target: "book_ref", Kind: "int", Required: true, Synonyms: []string{"book", "item", "accession"}},
			{Target: "borrowed_date", Kind: "date", NeedsTransform: true, Synonyms: []string{"issue_date", "issued", "borrowed", "date_out"}},
			{Target: "due_date", Kind: "date", NeedsTransform: true, Synonyms: []string{"due", "return_by", "expected"}},
			{Target: "returned_date", Kind: "date", NeedsTransform: true, Synonyms: []string{"return_date", "returned", "date_in"}},
			{Target: "lost", Kind: "bool", Synonyms: []string{"lost", "missing"}},
			{Target: "condition", Kind: "string", Synonyms: []string{"condition", "state"}},
			{Target: "fine", Kind: "float", Synonyms: []string{"fine", "charge", "penalty"}},
		},
	},
	{
		Entity:        RoleCategories,
		TablePatterns: []string{"categor", "genre", "subject"},
		Fields: []fieldRule{
			{Target: "name", Kind: "string", Required: true, Synonyms: []string{"name", "category", "cat", "genre", "subject"}},
			{Target: "description", Kind: "string", Synonyms: []string{"description", "desc", "details"}},
		},
	},
	{
		Entity:        RoleFines,
		TablePatterns: []string{"fine", "penalt", "charge"},
		Fields: []fieldRule{
			{Target: "student_ref", Kind: "int", Required: true, Synonyms: []string{"member", "student", "borrower"}},
			{Target: "amount", Kind: "float", Required: true, Synonyms: []string{"amount", "fine", "charge"}},
			{Target: "reason", Kind: "string", Synonyms: []string{"reason", "description", "type"}},
			{Target: "date", Kind: "date", NeedsTransform: true, Synonyms: []string{"date", "issued", "created"}},
		},
	},
}

// DetectTables probes every user table in the source and scores it against
// the role rules. A table that errors during introspection is logged and
// skipped; it never aborts the run.
func DetectTables(src *legacy.Source) ([]TableDetection, error) {
	names, err := src.Tables()
	if err != nil {
		return nil, err
	}

	log := getLogger()
	detections := make([]TableDetection, 0, len(names))
	for _, name := range names {
		info, err := src.TableInfo(name)
		if err != nil {
			log.Warn("skipping table, introspection failed", "table", name, "error", err)
			continue
		}
		detections = append(detections, detectTable(info))
	}
	return detections, nil
}

// detectTable scores one table against every rule and keeps the best.
func detectTable(info *legacy.TableInfo) TableDetection {
	detection := TableDetection{
		SourceTable: info.Name,
		RecordCount: info.RowCount,
		Status:      StatusUnmapped,
		PrimaryKey:  primaryKeyColumn(info),
	}

	bestScore := 0
	var bestRule *roleRule
	for i := range roleRules {
		// Strictly-greater keeps the earlier rule on ties, preserving the
		// declared priority order.
		if score := scoreTable(&roleRules[i], info); score > bestScore {
			bestScore = score
			bestRule = &roleRules[i]
		}
	}
	if bestRule == nil {
		return detection
	}

	detection.TargetEntity = bestRule.Entity
	detection.Score = bestScore
	detection.FieldMappings = mapColumns(bestRule, info)
	if len(detection.FieldMappings) == len(bestRule.Fields) {
		detection.Status = StatusMapped
	} else {
		detection.Status = StatusPartial
	}
	return detection
}

// scoreTable computes the match score of one table against one rule.
func scoreTable(rule *roleRule, info *legacy.TableInfo) int {
	score := 0
	tableName := normalizeName(info.Name)
	for _, pattern := range rule.TablePatterns {
		if strings.Contains(tableName, pattern) {
			score += 10
		}
	}

	for _, col := range info.Columns {
		colName := normalizeName(col.Name)
		for _, field := range rule.Fields {
			if matchesAny(colName, field.Synonyms) {
				score++
				break
			}
		}
	}
	return score
}

// mapColumns produces the column mappings for a winning rule. First match
// wins per field, in synonym declaration order; a source column feeds at
// most one target field.
func mapColumns(rule *roleRule, info *legacy.TableInfo) []ColumnMapping {
	used := make(map[string]bool, len(info.Columns))
	mappings := make([]ColumnMapping, 0, len(rule.Fields))

	for _, field := range rule.Fields {
		for _, synonym := range field.Synonyms {
			matched := ""
			for _, col := range info.Columns {
				if used[col.Name] {
					continue
				}
				if looseMatch(normalizeName(col.Name), normalizeName(synonym)) {
					matched = col.Name
					break
				}
			}
			if matched != "" {
				used[matched] = true
				mappings = append(mappings, ColumnMapping{
					SourceColumn:   matched,
					TargetField:    field.Target,
					DataKind:       field.Kind,
					Required:       field.Required,
					NeedsTransform: field.NeedsTransform,
				})
				break
			}
		}
	}
	return mappings
}

// primaryKeyColumn returns the declared primary key column, or the first
// column whose name is literally "id".
func primaryKeyColumn(info *legacy.TableInfo) string {
	for _, col := range info.Columns {
		if col.IsPrimaryKey {
			return col.Name
		}
	}
	for _, col := range info.Columns {
		if strings.EqualFold(col.Name, "id") {
			return col.Name
		}
	}
	return ""
}

// matchesAny reports whether a normalized column name loosely matches any of
// the synonyms.
func matchesAny(colName string, synonyms []string) bool {
	for _, synonym := range synonyms {
		if looseMatch(colName, normalizeName(synonym)) {
			return true
		}
	}
	return false
}

// looseMatch is a case-insensitive substring match in either direction over
// normalized names.
func looseMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// normalizeName lowercases a name and strips separators so "IssueDate" and
// "issue_date" compare equal.
func normalizeName(name string) string {
	name = strings.ToLower(name)
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(name)
}
