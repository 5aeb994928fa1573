package ha

import (
	"sort"
	"strings"
	"text/template"

	"github.com/LiXi-storage/clownfish/pkg/types"
)

const membershipTemplateText = `totem {
    version: 2
    interface {
        ringnumber: 0
        bindnetaddr: {{.BindNetAddr}}
        mcastaddr: 226.94.1.2
        mcastport: 5405
        ttl: 1
    }
}
service {
    ver:  0
    name: pacemaker
}
logging {
    to_logfile: yes
    logfile: /var/log/cluster/corosync.log
    to_syslog: yes
    logger_subsys {
        subsys: QUORUM
        debug: off
    }
}
quorum {
    provider: corosync_votequorum
}
nodelist {
{{range .Hostnames}}    node {
        ring0_addr: {{.}}
    }
{{end}}}
`

var membershipTemplate = template.Must(template.New("corosync.conf").Parse(membershipTemplateText))

type membershipData struct {
	BindNetAddr string
	Hostnames   []string
}

// BuildMembershipConfig renders the corosync membership configuration for
// topo: a totem section bound to bindNetAddr, a pacemaker service stub,
// logging defaults, quorum via corosync_votequorum, and a node-list
// enumerating exactly the hosts referenced by any service instance
// (deduplicated; spec.md §4.4).
func BuildMembershipConfig(topo *types.Topology, bindNetAddr string) (string, error) {
	ids := topo.AllReferencedHostIDs()
	hostnames := make([]string, 0, len(ids))
	for id := range ids {
		host, ok := topo.Hosts[id]
		if !ok {
			continue
		}
		hostnames = append(hostnames, host.Hostname)
	}
	sort.Strings(hostnames)

	var b strings.Builder
	data := membershipData{BindNetAddr: bindNetAddr, Hostnames: hostnames}
	if err := membershipTemplate.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// sortedHostIDs returns the deduplicated, referenced host ids in sorted
// order, giving key distribution and resource-graph construction a
// deterministic "host 0" to coordinate from.
func sortedHostIDs(topo *types.Topology) []string {
	ids := topo.AllReferencedHostIDs()
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
