// Package catalog implements the Catalog component of spec.md §4.8: the
// current database's name↔id map, its lazily-loaded table set, and the
// switch-database/write-back discipline described in spec.md §5.
//
// Grounded on the teacher's internal/storage/pager/catalog.go
// (Catalog.PutEntry/GetEntry/ListTables, lazy table load) and
// internal/storage/db.go's one-current-database, switch-flushes-previous
// idiom.
package catalog

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"relcore/internal/dberrors"
	"relcore/internal/storage/bufferpool"
	"relcore/internal/storage/index"
	"relcore/internal/storage/record"
	"relcore/internal/storage/table"
)

const tableMetaFile = "database.tablemeta"

// Catalog is a process-wide singleton: one current database at a time,
// guarded by the same single-owner borrow discipline spec.md §5 imposes on
// the buffer pool (no reentrant calls from within a callback).
type Catalog struct {
	bp      *bufferpool.BufferPool
	baseDir string
	logger  *log.Logger

	dbName string
	dbDir  string

	nameToID map[string]int
	idToName map[int]string
	nextID   int

	tables map[int]*table.Table
}

// New creates a Catalog rooted at baseDir (spec.md §6.1's "data/"), with no
// database selected yet.
func New(baseDir string, bp *bufferpool.BufferPool) *Catalog {
	return &Catalog{
		bp:      bp,
		baseDir: baseDir,
		logger:  log.New(log.Writer(), "catalog: ", log.LstdFlags),
	}
}

// TableByID implements table.Resolver: lazily loads and returns the table
// with the given id in the current database.
func (c *Catalog) TableByID(id int) (*table.Table, error) {
	if t, ok := c.tables[id]; ok {
		return t, nil
	}
	return c.loadTable(id)
}

// CurrentDatabase returns the selected database's name, or "" if none.
func (c *Catalog) CurrentDatabase() string { return c.dbName }

// CreateDatabase makes a new, empty database directory with no tables.
func (c *Catalog) CreateDatabase(name string) error {
	dir := filepath.Join(c.baseDir, name)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("%w: database %q", dberrors.ErrObjectExists, name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", dberrors.ErrIOError, err)
	}
	if err := writeTableMeta(dir, nil); err != nil {
		return err
	}
	return nil
}

// DropDatabase removes a database directory. Per spec.md §4.8, the target
// must not be the currently selected database.
func (c *Catalog) DropDatabase(name string) error {
	if name == c.dbName {
		return fmt.Errorf("%w: cannot drop the current database %q", dberrors.ErrConstraintViolation, name)
	}
	dir := filepath.Join(c.baseDir, name)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("%w: database %q", dberrors.ErrObjectNotFound, name)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("%w: %v", dberrors.ErrIOError, err)
	}
	return nil
}

// ListDatabases returns every database directory under baseDir.
func (c *Catalog) ListDatabases() ([]string, error) {
	entries, err := os.ReadDir(c.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", dberrors.ErrIOError, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// UseDatabase flushes and unloads the current database (if any) and selects
// name as current, reloading its name↔id map. Per spec.md §4.8: "Switching
// database writes back all loaded tables then reloads from the new
// directory's database.tablemeta file."
func (c *Catalog) UseDatabase(name string) error {
	execID := uuid.New()
	dir := filepath.Join(c.baseDir, name)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("%w: database %q", dberrors.ErrObjectNotFound, name)
	}
	if c.dbName != "" {
		if err := c.WriteBack(); err != nil {
			return err
		}
		c.logger.Printf("[%s] switching database %q -> %q", execID, c.dbName, name)
	}

	nameToID, err := readTableMeta(dir)
	if err != nil {
		return err
	}
	c.dbName = name
	c.dbDir = dir
	c.nameToID = nameToID
	c.idToName = make(map[int]string, len(nameToID))
	maxID := 0
	for n, id := range nameToID {
		c.idToName[id] = n
		if id > maxID {
			maxID = id
		}
	}
	c.nextID = maxID + 1
	c.tables = make(map[int]*table.Table)
	c.logger.Printf("[%s] database %q selected (%d tables)", execID, name, len(nameToID))
	return nil
}

// WriteBack flushes every loaded table's metadata, indices, and data pages,
// then flushes the buffer pool, per spec.md §5's clean-shutdown contract.
// The closed tables are unloaded and are reloaded from disk on next use.
func (c *Catalog) WriteBack() error {
	if c.dbName == "" {
		return nil
	}
	for id, t := range c.tables {
		name := c.idToName[id]
		if err := c.persistTable(name, t); err != nil {
			return err
		}
		if err := t.Close(); err != nil {
			return fmt.Errorf("%w: closing table %q: %v", dberrors.ErrIOError, name, err)
		}
	}
	c.tables = make(map[int]*table.Table)
	if err := writeTableMeta(c.dbDir, c.nameToID); err != nil {
		return err
	}
	return c.bp.FlushAll()
}

func (c *Catalog) requireDatabase() error {
	if c.dbName == "" {
		return dberrors.ErrNoDatabaseSelected
	}
	return nil
}

// ListTables returns every table name in the current database.
func (c *Catalog) ListTables() ([]string, error) {
	if err := c.requireDatabase(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(c.nameToID))
	for n := range c.nameToID {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// TableByName resolves a table by name, loading it on first use.
func (c *Catalog) TableByName(name string) (*table.Table, error) {
	if err := c.requireDatabase(); err != nil {
		return nil, err
	}
	id, ok := c.nameToID[name]
	if !ok {
		return nil, fmt.Errorf("%w: table %q", dberrors.ErrObjectNotFound, name)
	}
	return c.TableByID(id)
}

// loadTable reads a table's metadata, then its indices, then registers its
// foreign keys with every table they reference (loading those too, per
// spec.md §4.8's "metadata first, then indices" ordering, extended so a
// table's AsForeignKey inverse map is always populated before it is used
// for a cascade).
func (c *Catalog) loadTable(id int) (*table.Table, error) {
	name, ok := c.idToName[id]
	if !ok {
		return nil, fmt.Errorf("%w: table id %d", dberrors.ErrObjectNotFound, id)
	}
	metaPath := filepath.Join(c.dbDir, name+".metadata")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", dberrors.ErrIOError, metaPath, err)
	}
	meta, err := table.UnmarshalMeta(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dberrors.ErrInternal, err)
	}

	indices := make(map[string]*index.ColIndex)
	for key, spec := range meta.IndexRecord {
		idxPath := c.indexPath(id, spec.Cols)
		raw, err := os.ReadFile(idxPath)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", dberrors.ErrIOError, idxPath, err)
		}
		ci, err := index.Unmarshal(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", dberrors.ErrInternal, err)
		}
		indices[key] = ci
	}

	dataPath := filepath.Join(c.dbDir, name+".data")
	t, err := table.Open(meta, dataPath, c.bp, c, indices)
	if err != nil {
		return nil, err
	}
	c.tables[id] = t

	for _, fk := range meta.ForeignKey {
		foreign, err := c.TableByID(fk.ForeignTable)
		if err != nil {
			return nil, fmt.Errorf("%w: resolving foreign table for %q: %v", dberrors.ErrInternal, name, err)
		}
		foreign.Meta.AsForeignKey[fk.ForeignCols.Key()] = appendRefSpec(
			foreign.Meta.AsForeignKey[fk.ForeignCols.Key()], table.RefSpec{RefTable: id, RefCols: fk.Cols})
	}

	return t, nil
}

func appendRefSpec(existing []table.RefSpec, add table.RefSpec) []table.RefSpec {
	for _, r := range existing {
		if r.RefTable == add.RefTable && r.RefCols.Key() == add.RefCols.Key() {
			return existing
		}
	}
	return append(existing, add)
}

// CreateTable registers and persists a brand-new table.
func (c *Catalog) CreateTable(name string, cols []record.Column) (*table.Table, error) {
	if err := c.requireDatabase(); err != nil {
		return nil, err
	}
	if _, exists := c.nameToID[name]; exists {
		return nil, fmt.Errorf("%w: table %q", dberrors.ErrObjectExists, name)
	}
	id := c.nextID
	c.nextID++
	dataPath := filepath.Join(c.dbDir, name+".data")
	t, err := table.Create(id, name, cols, dataPath, c.bp, c)
	if err != nil {
		return nil, err
	}
	c.nameToID[name] = id
	c.idToName[id] = name
	c.tables[id] = t
	if err := c.persistTable(name, t); err != nil {
		return nil, err
	}
	if err := writeTableMeta(c.dbDir, c.nameToID); err != nil {
		return nil, err
	}
	return t, nil
}

// DropTable removes a table and its on-disk files. Callers are expected to
// have already verified no other table's foreign key references it.
func (c *Catalog) DropTable(name string) error {
	if err := c.requireDatabase(); err != nil {
		return err
	}
	id, ok := c.nameToID[name]
	if !ok {
		return fmt.Errorf("%w: table %q", dberrors.ErrObjectNotFound, name)
	}
	if t, ok := c.tables[id]; ok {
		_ = t.Close()
		delete(c.tables, id)
	}
	delete(c.nameToID, name)
	delete(c.idToName, id)
	_ = os.Remove(filepath.Join(c.dbDir, name+".data"))
	_ = os.Remove(filepath.Join(c.dbDir, name+".metadata"))
	matches, _ := filepath.Glob(filepath.Join(c.dbDir, fmt.Sprintf("tb%d-col*.bp.index", id)))
	for _, m := range matches {
		_ = os.Remove(m)
	}
	return writeTableMeta(c.dbDir, c.nameToID)
}

// PersistTable writes a table's current metadata and index files to disk,
// without closing it (used after DDL that changes its Meta, e.g. CreateIndex).
func (c *Catalog) PersistTable(name string) error {
	id, ok := c.nameToID[name]
	if !ok {
		return fmt.Errorf("%w: table %q", dberrors.ErrObjectNotFound, name)
	}
	t, ok := c.tables[id]
	if !ok {
		return fmt.Errorf("%w: table %q not loaded", dberrors.ErrInternal, name)
	}
	return c.persistTable(name, t)
}

func (c *Catalog) persistTable(name string, t *table.Table) error {
	metaPath := filepath.Join(c.dbDir, name+".metadata")
	if err := os.WriteFile(metaPath, t.Meta.Marshal(), 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", dberrors.ErrIOError, metaPath, err)
	}
	for key, ci := range t.Indices() {
		spec := t.Meta.IndexRecord[key]
		idxPath := c.indexPath(t.Meta.ID, spec.Cols)
		if err := os.WriteFile(idxPath, ci.Marshal(), 0o644); err != nil {
			return fmt.Errorf("%w: writing %s: %v", dberrors.ErrIOError, idxPath, err)
		}
	}
	return nil
}

func (c *Catalog) indexPath(tableID int, cols table.ColVec) string {
	name := fmt.Sprintf("tb%d-col", tableID)
	for i, col := range cols {
		if i > 0 {
			name += "_"
		}
		name += fmt.Sprintf("%d", col)
	}
	name += ".bp.index"
	return filepath.Join(c.dbDir, name)
}

// CreateIndex builds and persists a secondary index over name's columns.
func (c *Catalog) CreateIndex(name string, cols table.ColVec, unique bool) error {
	t, err := c.TableByName(name)
	if err != nil {
		return err
	}
	if err := t.CreateIndex(cols, unique); err != nil {
		return err
	}
	return c.persistTable(name, t)
}

// DropIndex removes and un-persists a secondary index.
func (c *Catalog) DropIndex(name string, cols table.ColVec) error {
	id, ok := c.nameToID[name]
	if !ok {
		return fmt.Errorf("%w: table %q", dberrors.ErrObjectNotFound, name)
	}
	t, err := c.TableByName(name)
	if err != nil {
		return err
	}
	if err := t.DropIndex(cols); err != nil {
		return err
	}
	_ = os.Remove(c.indexPath(id, cols))
	return c.persistTable(name, t)
}
