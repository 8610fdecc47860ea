package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	activitiesTracked = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "starpath",
		Subsystem: "activity",
		Name:      "tracked_total",
		Help:      "Activity records appended, by activity type.",
	}, []string{"type"})
	achievementsAwarded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "starpath",
		Subsystem: "activity",
		Name:      "achievements_awarded_total",
		Help:      "Badges granted, by rule title.",
	}, []string{"title"})
	achievementFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "starpath",
		Subsystem: "activity",
		Name:      "achievement_evaluation_failures_total",
		Help:      "Achievement passes that failed and were skipped.",
	})
	storeFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "starpath",
		Subsystem: "store",
		Name:      "failures_total",
		Help:      "Persistent store operations that failed and were swallowed, by operation.",
	}, []string{"op"})
)

func init() {
	prometheus.MustRegister(activitiesTracked, achievementsAwarded, achievementFailures, storeFailures)
}

func RecordActivity(activityType string) {
	activitiesTracked.WithLabelValues(activityType).Inc()
}

func RecordAchievement(title string) {
	achievementsAwarded.WithLabelValues(title).Inc()
}

func RecordAchievementFailure() {
	achievementFailures.Inc()
}

// RecordStoreFailure counts a swallowed store error for op (get, set, remove, clear).
func RecordStoreFailure(op string) {
	storeFailures.WithLabelValues(op).Inc()
}
