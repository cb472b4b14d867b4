package listing

// Option is a named boolean listing capability (create, publish, ...).
type Option string

const (
	OptionList             Option = "list"
	OptionCreate           Option = "create"
	OptionEdit             Option = "edit"
	OptionPublish          Option = "publish"
	OptionBulkPublish      Option = "bulkPublish"
	OptionFeature          Option = "feature"
	OptionBulkFeature      Option = "bulkFeature"
	OptionRestore          Option = "restore"
	OptionBulkRestore      Option = "bulkRestore"
	OptionForceDelete      Option = "forceDelete"
	OptionBulkForceDelete  Option = "bulkForceDelete"
	OptionDelete           Option = "delete"
	OptionBulkDelete       Option = "bulkDelete"
	OptionDuplicate        Option = "duplicate"
	OptionReorder          Option = "reorder"
	OptionPermalink        Option = "permalink"
	OptionBulkEdit         Option = "bulkEdit"
	OptionEditInModal      Option = "editInModal"
	OptionSkipCreateModal  Option = "skipCreateModal"
	OptionIncludeScheduled Option = "includeScheduledInList"
	OptionShowImage        Option = "showImage"
)

// CapabilityScope says what a capability is checked against.
type CapabilityScope int

const (
	// ModuleScoped capabilities are checked against the module name.
	ModuleScoped CapabilityScope = iota
	// ItemScoped capabilities are checked against one record; without
	// a record they fall back to the module-scoped form of the same
	// capability ("could the user ever do this on some item here").
	ItemScoped
)

// Capability pairs an authorization gate name with its scope.
type Capability struct {
	Name  string
	Scope CapabilityScope
}

// defaultOptions are the per-option enabled defaults, overridable per
// module through Config.Options.
var defaultOptions = map[Option]bool{
	OptionCreate:           true,
	OptionEdit:             true,
	OptionPublish:          true,
	OptionBulkPublish:      true,
	OptionFeature:          false,
	OptionBulkFeature:      false,
	OptionRestore:          true,
	OptionBulkRestore:      true,
	OptionForceDelete:      true,
	OptionBulkForceDelete:  true,
	OptionDelete:           true,
	OptionDuplicate:        false,
	OptionBulkDelete:       true,
	OptionReorder:          false,
	OptionPermalink:        true,
	OptionBulkEdit:         true,
	OptionEditInModal:      false,
	OptionSkipCreateModal:  false,
	OptionIncludeScheduled: true,
	OptionShowImage:        false,
}

// capabilities maps each option to the gate capability it requires.
// Options absent from this map resolve to disabled.
var capabilities = map[Option]Capability{
	OptionList:             {"access-list", ModuleScoped},
	OptionCreate:           {"edit", ModuleScoped},
	OptionEdit:             {"edit", ItemScoped},
	OptionPermalink:        {"edit", ItemScoped},
	OptionPublish:          {"edit", ItemScoped},
	OptionFeature:          {"edit", ItemScoped},
	OptionReorder:          {"edit", ModuleScoped},
	OptionDelete:           {"edit", ItemScoped},
	OptionDuplicate:        {"edit", ItemScoped},
	OptionRestore:          {"edit", ItemScoped},
	OptionForceDelete:      {"edit", ItemScoped},
	OptionBulkForceDelete:  {"edit", ModuleScoped},
	OptionBulkPublish:      {"edit", ModuleScoped},
	OptionBulkRestore:      {"edit", ModuleScoped},
	OptionBulkFeature:      {"edit", ModuleScoped},
	OptionBulkDelete:       {"edit", ModuleScoped},
	OptionBulkEdit:         {"edit", ModuleScoped},
	OptionEditInModal:      {"edit", ModuleScoped},
	OptionSkipCreateModal:  {"edit", ModuleScoped},
	OptionIncludeScheduled: {"edit", ModuleScoped},
	OptionShowImage:        {"edit", ModuleScoped},
}

// optionAliases remaps request-level option names before lookup.
var optionAliases = map[Option]Option{
	"store": OptionCreate,
}
