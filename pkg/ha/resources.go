package ha

import (
	"fmt"
	"sort"

	"github.com/LiXi-storage/clownfish/pkg/types"
)

const resourcePrefix = "clf_"

// resourceName returns the primitive name for a service, e.g. "clf_fs1-MDT0000".
func resourceName(serviceName string) string {
	return resourcePrefix + serviceName
}

// forbiddenHosts returns every cluster host NOT referenced by any
// instance of svc, in sorted order: the set a -INFINITY location
// constraint must be written for, per spec.md §4.4.
func forbiddenHosts(clusterHosts []string, svc *types.Service) []string {
	allowed := make(map[string]struct{}, len(svc.Instances))
	for _, inst := range svc.Instances {
		allowed[inst.HostID] = struct{}{}
	}
	var out []string
	for _, h := range clusterHosts {
		if _, ok := allowed[h]; !ok {
			out = append(out, h)
		}
	}
	return out
}

// locationCommands returns the "pcs constraint location ... prefers
// HOST=-INFINITY" command for every host not in the service's legal
// failover set.
func locationCommands(clusterHosts []string, resource string, svc *types.Service) [][]string {
	var out [][]string
	for _, host := range forbiddenHosts(clusterHosts, svc) {
		out = append(out, []string{"pcs", "constraint", "location", resource, "prefers", fmt.Sprintf("%s=-INFINITY", host)})
	}
	return out
}

// resourceGraphCommands builds the ordered sequence of pcs/crm command
// lines (spec.md §4.4's resource graph) run on the coordinating host:
// stonith disable, one primitive per MGT (plus its location constraints),
// then per filesystem an MDT template+primitives+ordering (when the
// filesystem has ordinary MDTs) and an OST template+primitives+ordering,
// all in the MGS-before-MDT, MDT-before-OST, MGS-before-OST order the
// original enforces.
func resourceGraphCommands(topo *types.Topology) ([][]string, error) {
	clusterHosts := sortedHostIDs(topo)

	cmds := [][]string{
		{"pcs", "property", "set", "stonith-enabled=false"},
	}

	mgts := topo.MGTs()
	sort.Strings(mgts)
	for _, mgtName := range mgts {
		svc, ok := topo.Services[mgtName]
		if !ok {
			return nil, fmt.Errorf("ha: MGT %q missing from topology", mgtName)
		}
		res := resourceName(mgtName)
		cmds = append(cmds, []string{"pcs", "resource", "create", res, "ocf:clownfish:lustre_server.sh", fmt.Sprintf("service=%s", mgtName)})
		cmds = append(cmds, locationCommands(clusterHosts, res, svc)...)
	}

	fsnames := make([]string, 0, len(topo.Filesystems))
	for fsname := range topo.Filesystems {
		fsnames = append(fsnames, fsname)
	}
	sort.Strings(fsnames)

	for _, fsname := range fsnames {
		fs := topo.Filesystems[fsname]
		fsCmds, err := filesystemResourceCommands(topo, fs, clusterHosts)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, fsCmds...)
	}

	return cmds, nil
}

func filesystemResourceCommands(topo *types.Topology, fs *types.Filesystem, clusterHosts []string) ([][]string, error) {
	var cmds [][]string

	mgsResource := ""
	ordinaryMDTs := append([]string(nil), fs.MDTs...)

	if fs.MgsID != "" {
		mgsResource = resourceName(fs.MgsID)
	} else {
		mgsMDTIdx := -1
		for i, name := range fs.MDTs {
			svc, ok := topo.Services[name]
			if ok && svc.IsMGS {
				mgsMDTIdx = i
				break
			}
		}
		if mgsMDTIdx == -1 {
			return nil, fmt.Errorf("ha: filesystem %q has neither mgs_id nor an is_mgs MDT", fs.Fsname)
		}
		mgsMDTName := fs.MDTs[mgsMDTIdx]
		mgsSvc := topo.Services[mgsMDTName]
		mgsResource = resourceName(mgsMDTName)
		cmds = append(cmds, []string{"crm", "configure", "primitive", mgsResource, "ocf:clownfish:lustre_server.sh", "params", fmt.Sprintf("service=%s", mgsMDTName)})
		cmds = append(cmds, locationCommands(clusterHosts, mgsResource, mgsSvc)...)

		ordinaryMDTs = append(append([]string(nil), fs.MDTs[:mgsMDTIdx]...), fs.MDTs[mgsMDTIdx+1:]...)
	}

	haveMDT := len(ordinaryMDTs) > 0
	var mdtResourceNames []string

	if haveMDT {
		mdtTemplate := resourcePrefix + fs.Fsname + "_MDT"
		cmds = append(cmds, []string{"crm", "configure", "rsc_template", mdtTemplate, "ocf:clownfish:lustre_server.sh"})

		for _, name := range ordinaryMDTs {
			svc, ok := topo.Services[name]
			if !ok {
				return nil, fmt.Errorf("ha: MDT %q missing from topology", name)
			}
			res := resourceName(name)
			cmds = append(cmds, []string{"crm", "configure", "primitive", res, "@" + mdtTemplate, "params", fmt.Sprintf("service=%s", name)})
			cmds = append(cmds, locationCommands(clusterHosts, res, svc)...)
			mdtResourceNames = append(mdtResourceNames, res)
		}

		cmds = append(cmds, orderCommand(resourcePrefix+fs.Fsname+"_mgs_before_mdt", mgsResource, mdtResourceNames))
	}

	ostTemplate := resourcePrefix + fs.Fsname + "_OST"
	cmds = append(cmds, []string{"crm", "configure", "rsc_template", ostTemplate, "ocf:clownfish:lustre_server.sh"})

	var ostResourceNames []string
	for _, name := range fs.OSTs {
		svc, ok := topo.Services[name]
		if !ok {
			return nil, fmt.Errorf("ha: OST %q missing from topology", name)
		}
		res := resourceName(name)
		cmds = append(cmds, []string{"crm", "configure", "primitive", res, "@" + ostTemplate, "params", fmt.Sprintf("service=%s", name)})
		cmds = append(cmds, locationCommands(clusterHosts, res, svc)...)
		ostResourceNames = append(ostResourceNames, res)
	}

	if haveMDT {
		cmds = append(cmds, orderCommand(resourcePrefix+fs.Fsname+"_mdt_before_ost", "", mdtResourceNames, ostResourceNames...))
	}
	cmds = append(cmds, orderCommand(resourcePrefix+fs.Fsname+"_mgs_before_ost", mgsResource, ostResourceNames))

	return cmds, nil
}

// orderCommand builds a "crm configure order" command. When first is
// non-empty the ordering is first-before-set; when first is empty, the
// ordering is between the two resource sets passed via set and extra.
func orderCommand(orderID, first string, set []string, extra ...string) []string {
	cmd := []string{"crm", "configure", "order", orderID, "Optional:"}
	if first != "" {
		cmd = append(cmd, first)
	}
	cmd = append(cmd, parenthesized(set))
	if len(extra) > 0 {
		cmd = append(cmd, parenthesized(extra))
	}
	return cmd
}

func parenthesized(names []string) string {
	s := "("
	for i, n := range names {
		if i > 0 {
			s += " "
		}
		s += n + ":start"
	}
	s += ")"
	return s
}
