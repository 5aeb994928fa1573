package engine

import (
	"time"

	"github.com/LiXi-storage/clownfish/pkg/types"
)

// tier returns a service's priority tier: 1 is highest (MGT or an IsMGS
// MDT), 2 is every other MDT, 3 is every OST.
func tier(svc *types.Service) int {
	switch {
	case svc.Kind == types.ServiceKindMGT:
		return 1
	case svc.Kind == types.ServiceKindMDT && svc.IsMGS:
		return 1
	case svc.Kind == types.ServiceKindMDT:
		return 2
	default:
		return 3
	}
}

// higherPriority reports whether candidate a should be elected before b,
// given the current tier of each service and the last time each was
// repaired. A service that has never been repaired always beats one that
// has, regardless of when; among two that have, the one repaired longer
// ago wins. Ties fall back to name order for determinism.
func higherPriority(svcA, svcB *types.Service, lastRepairTime map[string]time.Time) bool {
	ta, tb := tier(svcA), tier(svcB)
	if ta != tb {
		return ta < tb
	}

	la, hasA := lastRepairTime[svcA.Name]
	lb, hasB := lastRepairTime[svcB.Name]
	switch {
	case hasA != hasB:
		return !hasA
	case hasA && hasB:
		if !la.Equal(lb) {
			return la.Before(lb)
		}
	}
	return svcA.Name < svcB.Name
}
