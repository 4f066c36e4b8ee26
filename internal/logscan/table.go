package logscan

import "regexp"

// Metric line patterns the engine emits. The wall-time and loop-time lines
// appear in every stage; the remainder are stage-specific summary lines.
var (
	wallTimePattern  = regexp.MustCompile(`^Total wall time`)
	loopTimePattern  = regexp.MustCompile(`^Loop time of`)
	finalTempPattern = regexp.MustCompile(`^Final Temperature:`)
	ejectedPattern   = regexp.MustCompile(`^Ejected atoms:`)
	clusterPattern   = regexp.MustCompile(`^Nucleation clusters:`)
	particlePattern  = regexp.MustCompile(`^Particle count:`)
	diameterPattern  = regexp.MustCompile(`^Mean diameter \(nm\):`)
)

// commonTable applies to every stage.
var commonTable = []MetricPattern{
	{Label: "wall time", Pattern: wallTimePattern},
	{Label: "loop time", Pattern: loopTimePattern},
}

// stageTables holds the extra patterns per stage name.
var stageTables = map[string][]MetricPattern{
	"equilibration": {
		{Label: "final temperature", Pattern: finalTempPattern},
	},
	"discharge": {
		{Label: "final temperature", Pattern: finalTempPattern},
		{Label: "ejected atoms", Pattern: ejectedPattern},
	},
	"quench": {
		{Label: "final temperature", Pattern: finalTempPattern},
		{Label: "nucleation clusters", Pattern: clusterPattern},
	},
	"growth": {
		{Label: "particle count", Pattern: particlePattern},
		{Label: "mean diameter", Pattern: diameterPattern},
	},
}

// TableFor returns the metric pattern table for a stage. Unknown stage names
// get the common table only, so custom phase files still extract timing.
func TableFor(phaseName string) []MetricPattern {
	table := make([]MetricPattern, 0, len(commonTable)+3)
	table = append(table, commonTable...)
	table = append(table, stageTables[phaseName]...)
	return table
}
