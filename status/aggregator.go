// Package status turns workflow runs into the snapshot shown to customers
// and publishes the most recent one to pollers.
package status

import (
	"fmt"
	"math"
	"time"

	"parkgo/runner"
)

// secondsPerStep is the coarse per-step estimate used for remaining time.
const secondsPerStep = 3

const (
	outcomeSuccess = "success"
	outcomeFailed  = "failed"
)

const (
	msgProcessComplete = "전체 프로세스 완료"
	msgProcessFailed   = "프로세스 실패"
	msgNetworkError    = "네트워크 오류"
	msgLoading         = "상태 정보를 불러오는 중..."
)

var stepMessages = map[runner.StepName]struct{ success, failure string }{
	runner.StepSiteAccess:          {"사이트 접속 성공", "사이트 접속 실패"},
	runner.StepLogin:               {"로그인 성공", "로그인 실패"},
	runner.StepVehicleSearch:       {"차량번호 검색 성공", "차량번호 입력 실패"},
	runner.StepVehicleSelection:    {"차량 선택 성공", "차량 선택 실패"},
	runner.StepDiscountApplication: {"할인권 적용 완료", "할인권 적용 실패"},
}

// Outcome is one step as displayed on the status page.
type Outcome struct {
	Step       runner.StepName `json:"step"`
	Succeeded  bool            `json:"succeeded"`
	Status     string          `json:"status"` // "success" or "failed"
	Message    string          `json:"message"`
	Detail     string          `json:"detail,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Record is the externally visible snapshot of one refresh cycle.
type Record struct {
	RunID                     string    `json:"run_id,omitempty"`
	LookupKey                 string    `json:"lookup_key,omitempty"`
	Succeeded                 bool      `json:"succeeded"`
	Outcomes                  []Outcome `json:"outcomes"`
	CurrentMessage            string    `json:"current_message"`
	Summary                   string    `json:"summary"`
	ProgressPercent           int       `json:"progress_percent"`
	EstimatedRemainingSeconds int       `json:"estimated_remaining_seconds"`
	ErrorMessage              *string   `json:"error_message"`
	ElapsedSeconds            float64   `json:"elapsed_seconds"`
	GeneratedAt               time.Time `json:"generated_at"`
}

// Summarize derives the record for a finished run. GeneratedAt is the time
// the run ended.
func Summarize(result runner.RunResult) Record {
	rec := Record{
		RunID:          result.ID,
		LookupKey:      result.LookupKey,
		Succeeded:      result.Succeeded,
		Outcomes:       make([]Outcome, 0, len(result.Outcomes)),
		ElapsedSeconds: math.Round(result.Elapsed.Seconds()*100) / 100,
		GeneratedAt:    result.StartedAt.Add(result.Elapsed),
	}

	successes := 0
	for _, o := range result.Outcomes {
		rec.Outcomes = append(rec.Outcomes, displayOutcome(o))
		if o.Succeeded {
			successes++
		}
	}
	rec.ProgressPercent = progress(successes, len(result.Outcomes))

	switch {
	case result.Succeeded:
		rec.CurrentMessage = msgProcessComplete
	case len(result.Outcomes) == 0:
		rec.CurrentMessage = msgNetworkError
	default:
		rec.CurrentMessage = msgProcessFailed
	}

	if !result.Succeeded {
		rec.EstimatedRemainingSeconds = (len(runner.Steps) - len(result.Outcomes)) * secondsPerStep
		rec.ErrorMessage = errorText(result.Error)
	}

	rec.Summary = CustomerMessage(rec)
	return rec
}

// SummarizeError derives the record for a cycle that produced no run result.
func SummarizeError(err error, at time.Time) Record {
	rec := Record{
		Outcomes:                  []Outcome{},
		CurrentMessage:            msgNetworkError,
		EstimatedRemainingSeconds: len(runner.Steps) * secondsPerStep,
		ErrorMessage:              errorText(err.Error()),
		GeneratedAt:               at,
	}
	rec.Summary = CustomerMessage(rec)
	return rec
}

// Placeholder is served until the first cycle completes.
func Placeholder(at time.Time) Record {
	rec := Record{
		Outcomes:       []Outcome{},
		CurrentMessage: msgLoading,
		GeneratedAt:    at,
	}
	rec.Summary = CustomerMessage(rec)
	return rec
}

// CustomerMessage is the one-line message shown above the progress bar.
func CustomerMessage(rec Record) string {
	switch {
	case rec.Succeeded:
		return fmt.Sprintf("✅ 주차 할인권 적용이 완료되었습니다! (진행률: %d%%)", rec.ProgressPercent)
	case rec.ErrorMessage != nil:
		return "❌ 주차 할인권 적용 중 오류가 발생했습니다: " + *rec.ErrorMessage
	default:
		return fmt.Sprintf("⚠️ 주차 할인권 적용이 진행 중입니다... (진행률: %d%%)", rec.ProgressPercent)
	}
}

// Report renders the detailed multi-line status report.
func Report(rec Record) []string {
	lines := []string{
		"📊 주차 할인권 적용 상태 보고서",
		"⏰ 시간: " + rec.GeneratedAt.Local().Format("2006-01-02 15:04:05"),
		fmt.Sprintf("📈 진행률: %d%%", rec.ProgressPercent),
	}
	if rec.EstimatedRemainingSeconds > 0 {
		lines = append(lines, fmt.Sprintf("⏳ 예상 남은 시간: %d초", rec.EstimatedRemainingSeconds))
	}

	lines = append(lines, "📋 단계별 진행 상황:")
	for i, o := range rec.Outcomes {
		mark := "✅"
		if !o.Succeeded {
			mark = "❌"
		}
		lines = append(lines, fmt.Sprintf("  %d. %s %s", i+1, mark, o.Message))
	}

	if rec.ErrorMessage != nil {
		lines = append(lines, "🚨 오류 메시지: "+*rec.ErrorMessage)
	}
	return lines
}

func displayOutcome(o runner.StepOutcome) Outcome {
	out := Outcome{
		Step:       o.Step,
		Succeeded:  o.Succeeded,
		Status:     outcomeFailed,
		Detail:     o.Message,
		OccurredAt: o.OccurredAt,
	}
	msgs, known := stepMessages[o.Step]
	switch {
	case !known && o.Succeeded:
		out.Message = string(o.Step) + " 성공"
	case !known:
		out.Message = string(o.Step) + " 실패"
	case o.Succeeded:
		out.Message = msgs.success
	default:
		out.Message = msgs.failure
	}
	if o.Succeeded {
		out.Status = outcomeSuccess
	}
	return out
}

func progress(successes, attempted int) int {
	if attempted == 0 {
		return 0
	}
	return int(math.Round(100 * float64(successes) / float64(attempted)))
}

func errorText(s string) *string {
	if s == "" {
		s = "알 수 없는 오류"
	}
	return &s
}
