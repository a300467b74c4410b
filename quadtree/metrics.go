package quadtree

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	depthLabel = "depth"
)

var (
	quadtreeInsertCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quadtree_inserts_total",
		Help: "The total number of inserted object references.",
	})

	quadtreeRetrieveCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quadtree_retrievals_total",
		Help: "The total number of candidate retrievals.",
	})

	quadtreeClearCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quadtree_clears_total",
		Help: "The total number of tree clears.",
	})

	quadtreeSplitCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quadtree_splits_total",
		Help: "The total number of node splits, by child depth.",
	}, []string{depthLabel})
)

func instrumentCountInsert() {
	quadtreeInsertCount.Inc()
}

func instrumentCountRetrieve() {
	quadtreeRetrieveCount.Inc()
}

func instrumentCountClear() {
	quadtreeClearCount.Inc()
}

func instrumentCountSplit(childDepth uint32) {
	quadtreeSplitCount.
		With(prometheus.Labels{depthLabel: strconv.FormatUint((uint64)(childDepth), 10)}).
		Inc()
}
