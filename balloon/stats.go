package balloon

import (
	"strconv"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/balloon/memutils"
)

// BuildStatsString returns a JSON document describing the balloon: its state, totals, what
// each node was asked for and currently holds, and, when detailedMap is true, every block in
// the ledger.
func (b *Balloon) BuildStatsString(detailedMap bool) string {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	writer := jwriter.NewWriter()
	objState := writer.Object()

	objState.Name("State").String(b.state.String())
	objState.Name("MaxOrder").Int(b.maxOrder)
	objState.Name("PageSize").Int(b.source.PageSize())

	var total memutils.DetailedStatistics
	total.Clear()
	b.ledger.AddDetailedStatistics(&total)

	totalObj := objState.Name("Total").Object()
	printDetailedStatistics(&totalObj, &total)
	totalObj.End()

	requestObj := objState.Name("Request").Object()
	requestObj.Name("TotalPages").Int(b.inflateReport.TotalPages)
	requestObj.Name("PerNode").Int(b.inflateReport.PerNode)
	requestObj.Name("Dropped").Int(b.inflateReport.Dropped)
	requestObj.End()

	nodesObj := objState.Name("Nodes").Object()
	for i, node := range b.nodes {
		nodeObj := nodesObj.Name(strconv.Itoa(node)).Object()

		var stats memutils.Statistics
		b.budget.AddStatistics(node, &stats)
		nodeObj.Name("Blocks").Int(stats.BlockCount)
		nodeObj.Name("Pages").Int(stats.PageCount)

		if limit, limited := b.budget.Limit(node); limited {
			nodeObj.Name("PageLimit").Int(limit)
		}

		if i < len(b.inflateReport.Nodes) {
			report := b.inflateReport.Nodes[i]
			nodeObj.Name("Target").Int(report.Target)
			nodeObj.Name("InitialOrder").Int(report.InitialOrder)
			nodeObj.Name("Unmet").Int(report.Unmet)
			nodeObj.Name("Overshoot").Int(report.Overshoot)
			nodeObj.Name("Fallbacks").Int(report.Fallbacks)
		}

		nodeObj.End()
	}
	nodesObj.End()

	if detailedMap {
		ledgerObj := objState.Name("Ledger").Object()
		b.ledger.WriteJSON(&ledgerObj, true)
		ledgerObj.End()
	}

	objState.End()
	return string(writer.Bytes())
}

func printDetailedStatistics(json *jwriter.ObjectState, stats *memutils.DetailedStatistics) {
	json.Name("BlockCount").Int(stats.BlockCount)
	json.Name("PageCount").Int(stats.PageCount)

	if stats.BlockCount > 0 {
		json.Name("OrderMin").Int(stats.OrderMin)
		json.Name("OrderMax").Int(stats.OrderMax)
	}
}
