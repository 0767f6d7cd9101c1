// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package query

import (
	"context"

	"github.com/poiesic/pulse/core"
)

const (
	defaultStatsDaysBack = 30
	statsWindowLimit     = 1000
)

// Statistics aggregates the feedback window into per-dimension counts.
// Items without a classification count only toward the source totals.
// AvgNPS is nil when no item in the window carries an NPS score.
func (e *Engine) Statistics(ctx context.Context, daysBack int) (*core.Statistics, error) {
	if daysBack <= 0 {
		daysBack = defaultStatsDaysBack
	}

	result, err := e.Search(ctx, Params{DaysBack: daysBack, Limit: statsWindowLimit})
	if err != nil {
		return nil, err
	}

	stats := &core.Statistics{
		TotalCount: result.TotalCount,
		BySentiment: map[core.Sentiment]int{
			core.SentimentPositive: 0,
			core.SentimentNeutral:  0,
			core.SentimentNegative: 0,
		},
		BySource: make(map[core.Source]int),
		ByTopic:  make(map[string]int),
		ByUrgency: map[core.Urgency]int{
			core.UrgencyLow:    0,
			core.UrgencyMedium: 0,
			core.UrgencyHigh:   0,
		},
		ByIntent: make(map[core.Intent]int),
	}

	var npsSum, npsCount int
	for _, item := range result.Items {
		stats.BySource[item.Source]++

		if item.NPSScore != nil {
			npsSum += *item.NPSScore
			npsCount++
		}

		if item.Classification == nil {
			continue
		}
		stats.BySentiment[item.Classification.Sentiment]++
		stats.ByUrgency[item.Classification.Urgency]++
		stats.ByIntent[item.Classification.Intent]++
		for _, topic := range item.Classification.Topics {
			stats.ByTopic[topic]++
		}
	}

	if npsCount > 0 {
		avg := float64(npsSum) / float64(npsCount)
		stats.AvgNPS = &avg
	}

	return stats, nil
}
