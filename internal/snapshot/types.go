package snapshot

// Node identifies one cluster member by its id and address pair.
type Node struct {
	ID      string `json:"id" yaml:"id"`
	Address string `json:"address" yaml:"address"`
}

func (n Node) String() string {
	return n.ID + " " + n.Address
}

type OperatingSystem struct {
	Name               *string `json:"name,omitempty" yaml:"name,omitempty"`
	Architecture       *string `json:"architecture,omitempty" yaml:"architecture,omitempty"`
	Version            *string `json:"version,omitempty" yaml:"version,omitempty"`
	Processors         *string `json:"processors,omitempty" yaml:"processors,omitempty"`
	TotalMemory        *string `json:"total_memory,omitempty" yaml:"total_memory,omitempty"`
	TotalSwap          *string `json:"total_swap,omitempty" yaml:"total_swap,omitempty"`
	MaxFileDescriptors *string `json:"max_file_descriptors,omitempty" yaml:"max_file_descriptors,omitempty"`
}

// Resources are point-in-time load counters of the node that produced the export.
type Resources struct {
	LoadAverage         *string `json:"load_average,omitempty" yaml:"load_average,omitempty"`
	CPULoad             *string `json:"cpu_load,omitempty" yaml:"cpu_load,omitempty"`
	FreeSwap            *string `json:"free_swap,omitempty" yaml:"free_swap,omitempty"`
	FreeMemory          *string `json:"free_memory,omitempty" yaml:"free_memory,omitempty"`
	OpenFileDescriptors *string `json:"open_file_descriptors,omitempty" yaml:"open_file_descriptors,omitempty"`
}

type Java struct {
	RuntimeVersion  *string `json:"runtime_version,omitempty" yaml:"runtime_version,omitempty"`
	VMArguments     *string `json:"vm_arguments,omitempty" yaml:"vm_arguments,omitempty"`
	PercentHeapUsed *string `json:"percent_heap_used,omitempty" yaml:"percent_heap_used,omitempty"`
	HeapUsed        *string `json:"heap_used,omitempty" yaml:"heap_used,omitempty"`
	HeapAvailable   *string `json:"heap_available,omitempty" yaml:"heap_available,omitempty"`
}

type Database struct {
	Name          *string `json:"name,omitempty" yaml:"name,omitempty"`
	Version       *string `json:"version,omitempty" yaml:"version,omitempty"`
	SupportLevel  *string `json:"support_level,omitempty" yaml:"support_level,omitempty"`
	ConnectionURL *string `json:"connection_url,omitempty" yaml:"connection_url,omitempty"`
	DriverName    *string `json:"driver_name,omitempty" yaml:"driver_name,omitempty"`
	DriverVersion *string `json:"driver_version,omitempty" yaml:"driver_version,omitempty"`
}

type SCMCache struct {
	HTTPEnabled             *bool `json:"http_enabled,omitempty" yaml:"http_enabled,omitempty"`
	SSHEnabled              *bool `json:"ssh_enabled,omitempty" yaml:"ssh_enabled,omitempty"`
	RefAdvertisementEnabled *bool `json:"ref_advertisement_enabled,omitempty" yaml:"ref_advertisement_enabled,omitempty"`
}

type Filesystem struct {
	Name      *string `json:"name,omitempty" yaml:"name,omitempty"`
	Path      *string `json:"path,omitempty" yaml:"path,omitempty"`
	Type      *string `json:"type,omitempty" yaml:"type,omitempty"`
	FreeSize  *string `json:"free_size,omitempty" yaml:"free_size,omitempty"`
	TotalSize *string `json:"total_size,omitempty" yaml:"total_size,omitempty"`
}

type Elasticsearch struct {
	BaseURL          *string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	ConnectionResult *string `json:"connection_result,omitempty" yaml:"connection_result,omitempty"`
}

// Snapshot is the parsed content of one application.xml export. Optional
// facts are nil when the corresponding element is absent; a Snapshot is
// never modified after Parse returns.
type Snapshot struct {
	// Source
	Path           string `json:"path" yaml:"path"`
	Bundle         string `json:"bundle,omitempty" yaml:"bundle,omitempty"`
	PropertiesPath string `json:"properties_path,omitempty" yaml:"properties_path,omitempty"`

	// Identity
	ProductName    *string `json:"product_name,omitempty" yaml:"product_name,omitempty"`
	ProductVersion string  `json:"product_version" yaml:"product_version"`
	BaseURL        *string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Topology
	Clustered     bool   `json:"clustered" yaml:"clustered"`
	DeclaredNodes []Node `json:"declared_nodes,omitempty" yaml:"declared_nodes,omitempty"`
	LocalNode     *Node  `json:"local_node,omitempty" yaml:"local_node,omitempty"`

	OS            *OperatingSystem `json:"os,omitempty" yaml:"os,omitempty"`
	Resources     *Resources       `json:"resources,omitempty" yaml:"resources,omitempty"`
	Java          *Java            `json:"java,omitempty" yaml:"java,omitempty"`
	Database      *Database        `json:"database,omitempty" yaml:"database,omitempty"`
	GitVersion    *string          `json:"git_version,omitempty" yaml:"git_version,omitempty"`
	SCMCache      *SCMCache        `json:"scm_cache,omitempty" yaml:"scm_cache,omitempty"`
	Home          *Filesystem      `json:"home,omitempty" yaml:"home,omitempty"`
	SharedHome    *Filesystem      `json:"shared_home,omitempty" yaml:"shared_home,omitempty"`
	Elasticsearch *Elasticsearch   `json:"elasticsearch,omitempty" yaml:"elasticsearch,omitempty"`

	// Counts
	ProjectCount    *string `json:"project_count,omitempty" yaml:"project_count,omitempty"`
	RepositoryCount *string `json:"repository_count,omitempty" yaml:"repository_count,omitempty"`
}
