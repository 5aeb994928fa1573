package config

// Raw is the decoded, not-yet-validated configuration tree, matching the
// on-disk YAML schema field for field. Every nested slice element keeps
// its own Id so pkg/topology can report which element of a list was
// invalid.
type Raw struct {
	LustreDistributions []LustreDistribution `yaml:"lustre_distributions"`
	SSHHosts            []SSHHost            `yaml:"ssh_hosts"`
	MGSList             []MGS                `yaml:"mgs_list"`
	Lustres             []Lustre             `yaml:"lustres"`
	QoS                 []QoS                `yaml:"qos"`
	HighAvailability    HighAvailability     `yaml:"high_availability"`
}

type LustreDistribution struct {
	ID        string `yaml:"id"`
	ClientDir string `yaml:"client_dir"`
	ServerDir string `yaml:"server_dir"`
}

type SSHHost struct {
	ID             string `yaml:"id"`
	Hostname       string `yaml:"hostname"`
	DistributionID string `yaml:"distribution_id"`
	CredentialPath string `yaml:"credential_path,omitempty"`
}

type Instance struct {
	HostID       string   `yaml:"host_id"`
	Device       string   `yaml:"device,omitempty"`       // ldiskfs: absolute device path
	ZpoolName    string   `yaml:"zpool_name,omitempty"`   // zfs: pool/dataset name
	ZpoolDevices []string `yaml:"zpool_devices,omitempty"`
	ZpoolOptions []string `yaml:"zpool_options,omitempty"`
	MountPoint   string   `yaml:"mount_point"`
	NetworkID    string   `yaml:"network_id,omitempty"`
}

type MGS struct {
	ID        string     `yaml:"id"`
	BackStore string     `yaml:"back_store"` // "ldiskfs" or "zfs"
	Instances []Instance `yaml:"instances"`
}

type MDT struct {
	Index     int        `yaml:"index"`
	IsMGS     bool       `yaml:"is_mgs,omitempty"`
	BackStore string     `yaml:"back_store"`
	Instances []Instance `yaml:"instances"`
}

type OST struct {
	Index     int        `yaml:"index"`
	BackStore string     `yaml:"back_store"`
	Instances []Instance `yaml:"instances"`
}

type Client struct {
	HostID     string `yaml:"host_id"`
	MountPoint string `yaml:"mount_point"`
}

type QoSUserOverride struct {
	UID       int     `yaml:"uid"`
	IOPSLimit float64 `yaml:"iops_limit"`
	MBpsLimit float64 `yaml:"mbps_limit"`
}

type Lustre struct {
	Fsname  string   `yaml:"fsname"`
	MgsID   string   `yaml:"mgs_id,omitempty"`
	MDTs    []MDT    `yaml:"mdts"`
	OSTs    []OST    `yaml:"osts"`
	Clients []Client `yaml:"clients,omitempty"`
}

// QoS is one entry of the top-level qos list, naming the filesystem it
// applies to. At most one entry may reference a given Fsname.
type QoS struct {
	Fsname            string            `yaml:"fsname"`
	TelemetryHostname string            `yaml:"telemetry_hostname"`
	Enabled           bool              `yaml:"enabled"`
	IntervalSeconds   float64           `yaml:"interval_seconds"`
	GlobalIOPSLimit   float64           `yaml:"global_iops_limit"`
	GlobalMBpsLimit   float64           `yaml:"global_mbps_limit"`
	MDSRPCRateLimit   float64           `yaml:"mds_rpc_rate_limit"`
	OSSRPCRateLimit   float64           `yaml:"oss_rpc_rate_limit"`
	Users             []QoSUserOverride `yaml:"users,omitempty"`
}

type HighAvailability struct {
	Enabled     bool   `yaml:"enabled"`
	Native      bool   `yaml:"native"`
	BindNetAddr string `yaml:"bindnetaddr,omitempty"`
}
