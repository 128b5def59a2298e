package runner_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"parkgo/driver"
	"parkgo/driver/drivertest"
	"parkgo/runner"
)

func TestDialogResolver_EmptyList(t *testing.T) {
	page := drivertest.NewPage(&drivertest.Element{Tag: "button", Text: "닫기", Dismiss: true})
	resolver := runner.NewDialogResolver(nil)

	n := resolver.Resolve(context.Background(), page, nil, time.Second)

	assert.Equal(t, 0, n)
	assert.Empty(t, page.Clicks())
	assert.Empty(t, page.Waits())
}

func TestDialogResolver_AbsentDialogIsBounded(t *testing.T) {
	page := drivertest.NewPage()
	resolver := runner.NewDialogResolver(nil)
	timeout := 20 * time.Millisecond

	start := time.Now()
	n := resolver.Resolve(context.Background(), page, []runner.Dialog{
		{Name: "never", Dismiss: driver.Button("없음")},
	}, timeout)
	elapsed := time.Since(start)

	assert.Equal(t, 0, n)
	assert.Empty(t, page.Clicks())
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+500*time.Millisecond)
}

func TestDialogResolver_DismissesInOrder(t *testing.T) {
	page := drivertest.NewPage(
		&drivertest.Element{Tag: "button", Text: "Skip", Dismiss: true},
		&drivertest.Element{Tag: "button", Text: "닫기", Dismiss: true},
		&drivertest.Element{Tag: "button", Text: "닫기", Dismiss: true},
	)
	resolver := runner.NewDialogResolver(nil)

	n := resolver.Resolve(context.Background(), page, []runner.Dialog{
		{Name: "skip", Dismiss: driver.Button("Skip")},
		{Name: "close one", Dismiss: driver.Button("닫기")},
		{Name: "close two", Dismiss: driver.Button("닫기")},
		{Name: "close three", Dismiss: driver.Button("닫기")},
	}, 10*time.Millisecond)

	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"Skip", "닫기", "닫기"}, page.Clicks())
}

func TestDialogResolver_MissingDialogDoesNotStopLaterOnes(t *testing.T) {
	page := drivertest.NewPage(&drivertest.Element{Tag: "button", Text: "다시 보지 않기", Dismiss: true})
	resolver := runner.NewDialogResolver(nil)

	n := resolver.Resolve(context.Background(), page, []runner.Dialog{
		{Name: "skip", Dismiss: driver.Button("Skip")},
		{Name: "support notice", Dismiss: driver.Button("다시 보지 않기")},
	}, 10*time.Millisecond)

	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"다시 보지 않기"}, page.Clicks())
}

func TestDialogResolver_ClickFailureIsNotCounted(t *testing.T) {
	page := drivertest.NewPage(&drivertest.Element{Tag: "button", Text: "확인", ClickErr: errors.New("obscured")})
	resolver := runner.NewDialogResolver(nil)

	n := resolver.Resolve(context.Background(), page, []runner.Dialog{
		{Name: "confirm", Dismiss: driver.Button("확인")},
	}, 10*time.Millisecond)

	assert.Equal(t, 0, n)
}

func TestDialogResolver_DisabledControlIsAbsent(t *testing.T) {
	page := drivertest.NewPage(&drivertest.Element{Tag: "button", Text: "확인", Disabled: true})
	resolver := runner.NewDialogResolver(nil)

	n := resolver.Resolve(context.Background(), page, []runner.Dialog{
		{Name: "confirm", Dismiss: driver.Button("확인")},
	}, 10*time.Millisecond)

	assert.Equal(t, 0, n)
	assert.Empty(t, page.Clicks())
}

func TestDialogResolver_StopsOnCancel(t *testing.T) {
	page := drivertest.NewPage(&drivertest.Element{Tag: "button", Text: "확인", Dismiss: true})
	resolver := runner.NewDialogResolver(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := resolver.Resolve(ctx, page, []runner.Dialog{
		{Name: "confirm", Dismiss: driver.Button("확인"), Delay: time.Second},
	}, time.Second)

	assert.Equal(t, 0, n)
	assert.Empty(t, page.Clicks())
}
