package keys

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ailab-bots/caloriebot/pkg/models"
)

const exportRule = "----------------------------------------------------------------------"

// WriteExport writes a human-readable listing of issued keys grouped by
// tier/quota, with activation markers, reflecting store state exactly at
// export time.
func WriteExport(w io.Writer, keys []*models.AccessKey) error {
	groups := map[string][]*models.AccessKey{}
	var order []string
	for _, k := range keys {
		label := groupLabel(k)
		if _, seen := groups[label]; !seen {
			order = append(order, label)
		}
		groups[label] = append(groups[label], k)
	}

	if _, err := fmt.Fprintf(w, "ACCESS KEYS\n%s\n\n", strings.Repeat("=", 70)); err != nil {
		return err
	}

	for _, label := range order {
		ks := groups[label]
		// Unactivated keys first so the distributable ones are easy to find.
		sort.SliceStable(ks, func(i, j int) bool {
			if ks[i].Activated() != ks[j].Activated() {
				return !ks[i].Activated()
			}
			return ks[i].Code < ks[j].Code
		})

		if _, err := fmt.Fprintf(w, "%s (%d)\n%s\n", label, len(ks), exportRule); err != nil {
			return err
		}
		for i, k := range ks {
			mark := ""
			if k.Activated() {
				mark = " [ACTIVATED]"
			}
			if _, err := fmt.Fprintf(w, "%2d. %s%s\n", i+1, Display(k), mark); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

func groupLabel(k *models.AccessKey) string {
	if k.Tier == models.TierUnlimited {
		return "UNLIMITED KEYS"
	}
	quota := 0
	if k.Quota != nil {
		quota = *k.Quota
	}
	return fmt.Sprintf("KEYS FOR %d ANALYSES", quota)
}
