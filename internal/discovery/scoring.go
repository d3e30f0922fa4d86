package discovery

// Scoring weights. The table is fixed; configuration only changes which
// markers populate each signal.
const (
	weightManifest        = 100
	weightMonorepoMarker  = 100
	weightVcsWithManifest = 50
	weightStrongLockfile  = 60
	weightDocsFirst       = 50
	weightStructureHints  = 30
	penaltyNegativeOnly   = 50

	// rootScoreThreshold is the classification cutoff for the weighted path.
	rootScoreThreshold = 60
)

// ScoreResult is the classification outcome for one directory.
type ScoreResult struct {
	Score      int
	IsRoot     bool
	IsMonorepo bool
}

// Score converts collected signals into a root classification. Pure
// function, no I/O.
//
// Classification is an OR of independent paths: the generic weighted score
// against the threshold, the legacy Node package override, and the
// docs-only override. The overrides are deliberately not folded into the
// weights so each path stays independently testable.
func Score(signals PathSignals, cfg *Config) ScoreResult {
	score := 0

	if signals.HasManifest {
		score += weightManifest
	}
	if signals.HasMonorepoMarker {
		score += weightMonorepoMarker
	}
	if signals.HasVcsMarker && signals.HasManifest {
		score += weightVcsWithManifest
	}
	if cfg.LockfilesAsStrong && signals.HasLockfile && signals.HasManifest {
		score += weightStrongLockfile
	}
	if signals.HasDocsFirst {
		score += weightDocsFirst
	}
	// Structure alone or code count alone earn nothing.
	if signals.HasStructureHints && signals.CodeFileCount >= cfg.MinCodeFilesToConsider {
		score += weightStructureHints
	}
	if signals.IsNegativeOnly {
		score -= penaltyNegativeOnly
	}

	isRoot := score >= rootScoreThreshold ||
		legacyNodeOverride(signals, cfg) ||
		docsOnlyOverride(signals)

	return ScoreResult{
		Score:      score,
		IsRoot:     isRoot,
		IsMonorepo: signals.HasMonorepoMarker,
	}
}

// legacyNodeOverride preserves the historical rule that predates the
// weighted scorer: any directory containing a Node package manifest is
// always a root.
func legacyNodeOverride(signals PathSignals, cfg *Config) bool {
	return cfg.StopAtNodePackageRoot && signals.MatchedManifests["package.json"]
}

// docsOnlyOverride classifies documentation-first directories. The
// docs-first weight alone sits below the threshold, but a docs directory
// with markdown content and no negative evidence is still a project.
func docsOnlyOverride(signals PathSignals) bool {
	return signals.HasDocsFirst && !signals.IsNegativeOnly
}
