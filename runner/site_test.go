package runner_test

import (
	"time"

	"parkgo/driver/drivertest"
	"parkgo/runner"
)

func testConfig() runner.SiteConfig {
	cfg := runner.DefaultSiteConfig()
	cfg.EntryURL = "http://members.example.test"
	cfg.Credentials = runner.Credentials{Username: "member", Password: "secret"}
	cfg.Timeouts = runner.Timeouts{
		Element:      30 * time.Millisecond,
		Dialog:       10 * time.Millisecond,
		ConfirmPause: time.Millisecond,
	}
	return cfg
}

type siteOptions struct {
	noInitialDialogs  bool
	loginRejected     bool
	vehicleMissing    bool
	noApplyPage       bool
	singleConfirm     bool
	applyClickErr     error
	extraPageElements []*drivertest.Element
}

// newSite builds a fake member site that reveals each screen as the
// previous one is completed.
func newSite(opts siteOptions) *drivertest.Page {
	confirm := func(p *drivertest.Page) {
		if opts.singleConfirm {
			return
		}
		p.Add(&drivertest.Element{Tag: "button", Text: "확인", Dismiss: true})
	}
	apply := &drivertest.Element{
		Tag:      "button",
		Text:     "30분 할인권 적용",
		ClickErr: opts.applyClickErr,
		OnClick: func(p *drivertest.Page) {
			p.Add(&drivertest.Element{Tag: "button", Text: "확인", Dismiss: true, OnClick: confirm})
		},
	}
	selectVehicle := &drivertest.Element{
		Tag:  "button",
		Text: "차량 선택",
		OnClick: func(p *drivertest.Page) {
			if !opts.noApplyPage {
				p.Add(apply)
			}
		},
	}
	search := &drivertest.Element{
		Tag:  "button",
		Text: "검색",
		OnClick: func(p *drivertest.Page) {
			if !opts.vehicleMissing {
				p.Add(selectVehicle)
			}
		},
	}
	login := &drivertest.Element{
		Tag:  "button",
		Text: "로그인",
		OnClick: func(p *drivertest.Page) {
			if opts.loginRejected {
				return
			}
			p.Add(
				&drivertest.Element{Tag: "button", Text: "닫기", Dismiss: true},
				&drivertest.Element{Tag: "button", Text: "닫기", Dismiss: true},
				&drivertest.Element{Tag: "input", Placeholder: "1234"},
				search,
			)
		},
	}

	page := drivertest.NewPage()
	page.OnNavigate = func(p *drivertest.Page) {
		if !opts.noInitialDialogs {
			p.Add(
				&drivertest.Element{Tag: "button", Text: "Skip", Dismiss: true},
				&drivertest.Element{Tag: "button", Text: "다시 보지 않기", Dismiss: true},
			)
		}
		p.Add(
			&drivertest.Element{Tag: "input", Placeholder: "아이디"},
			&drivertest.Element{Tag: "input", Placeholder: "비밀번호"},
			login,
		)
		p.Add(opts.extraPageElements...)
	}
	return page
}

func blankPage() *drivertest.Page {
	return drivertest.NewPage()
}
