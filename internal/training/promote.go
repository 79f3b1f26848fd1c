package training

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/churnflow/churnflow/internal/domain"
	"github.com/churnflow/churnflow/internal/platform/fsutil"
	"github.com/churnflow/churnflow/internal/platform/logger"
)

// ProductionAlias is the stable artifact name inference loads. Promotion
// copies the winning timestamped artifact over it; the originals are never
// touched.
const ProductionAlias = "production_latest"

type candidate struct {
	stem    string
	doc     MetricsDocument
	metrics string
}

type PromoteResult struct {
	PromotedFrom string  `json:"promoted_from"`
	ModelType    string  `json:"model_type"`
	PRAUC        float64 `json:"pr_auc"`
	ROCAUC       float64 `json:"roc_auc"`

	ProductionArtifact string `json:"production_artifact"`
	ProductionMetrics  string `json:"production_metrics"`

	SkippedUnconverged []string `json:"skipped_unconverged,omitempty"`
}

// Promote scans the metrics directory for artifact/metrics pairs, drops
// unconverged candidates, and aliases the best pr_auc run as production.
func Promote(log *logger.Logger, modelsDir, metricsDir string) (PromoteResult, error) {
	var out PromoteResult

	entries, err := filepath.Glob(filepath.Join(metricsDir, "*.metrics.json"))
	if err != nil {
		return out, err
	}
	sort.Strings(entries)

	var candidates []candidate
	for _, metricsPath := range entries {
		stem := strings.TrimSuffix(filepath.Base(metricsPath), ".metrics.json")
		if stem == ProductionAlias {
			continue
		}
		artifactPath := filepath.Join(modelsDir, stem+".json")
		if _, err := os.Stat(artifactPath); err != nil {
			continue
		}
		var doc MetricsDocument
		if err := fsutil.ReadJSON(metricsPath, &doc); err != nil {
			if log != nil {
				log.Warn("skipping unreadable metrics document", "path", metricsPath, "error", err.Error())
			}
			continue
		}
		if !doc.Converged {
			out.SkippedUnconverged = append(out.SkippedUnconverged, stem)
			if log != nil {
				log.Warn("skipping unconverged candidate", "artifact", stem)
			}
			continue
		}
		candidates = append(candidates, candidate{stem: stem, doc: doc, metrics: metricsPath})
	}
	if len(candidates) == 0 {
		return out, fmt.Errorf("%w: no promotable artifact/metrics pairs under %s", domain.ErrInputMissing, metricsDir)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].doc.PRAUC > candidates[j].doc.PRAUC
	})
	best := candidates[0]

	prodArtifact := filepath.Join(modelsDir, ProductionAlias+".json")
	prodSidecar := filepath.Join(modelsDir, ProductionAlias+".features.json")
	prodMetrics := filepath.Join(metricsDir, ProductionAlias+".metrics.json")

	if err := fsutil.CopyFile(filepath.Join(modelsDir, best.stem+".json"), prodArtifact); err != nil {
		return out, err
	}
	sidecar := filepath.Join(modelsDir, best.stem+".features.json")
	if _, err := os.Stat(sidecar); err == nil {
		if err := fsutil.CopyFile(sidecar, prodSidecar); err != nil {
			return out, err
		}
	}
	if err := fsutil.CopyFile(best.metrics, prodMetrics); err != nil {
		return out, err
	}

	out.PromotedFrom = best.stem
	out.ModelType = best.doc.ModelType
	out.PRAUC = best.doc.PRAUC
	out.ROCAUC = best.doc.ROCAUC
	out.ProductionArtifact = prodArtifact
	out.ProductionMetrics = prodMetrics

	if log != nil {
		log.Info("model promoted",
			"from", best.stem,
			"model", best.doc.ModelType,
			"pr_auc", best.doc.PRAUC,
			"roc_auc", best.doc.ROCAUC)
	}
	return out, nil
}
