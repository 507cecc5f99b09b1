package application

import (
	"strconv"

	"github.com/bnema/volumebot/internal/domain"
)

// Actions carried by inline buttons.
const (
	ActionCreate          = "create"
	ActionAdd             = "add"
	ActionSetMint         = "setMint"
	ActionConfig          = "cfg"
	ActionRun             = "run"
	ActionStop            = "stop"
	ActionStatus          = "status"
	ActionShowMain        = "showMain"
	ActionSellAll         = "sellAll"
	ActionSetWithdraw     = "setWithdraw"
	ActionConfirmWithdraw = "confirmWithdraw"

	rateActionPrefix = "rate_"
)

// Event is one inbound user input: either free text or an action id.
type Event struct {
	SessionID domain.SessionID
	Username  string
	Text      string
	Action    string
}

func RateAction(rate int) string {
	return rateActionPrefix + strconv.Itoa(rate)
}

func RateChoices() []domain.Choice {
	choices := make([]domain.Choice, len(domain.RateChoices))
	for i, rate := range domain.RateChoices {
		choices[i] = domain.Choice{Label: strconv.Itoa(rate), Action: RateAction(rate)}
	}
	return choices
}

// PanelActions is the button layout shown under the session panel.
func PanelActions() [][]domain.Choice {
	return [][]domain.Choice{
		{{Label: "🆕 New", Action: ActionCreate}, {Label: "➕ Add", Action: ActionAdd}},
		{{Label: "💳 Set Mint", Action: ActionSetMint}, {Label: "⚙️ Config", Action: ActionConfig}},
		{{Label: "🚀 Run", Action: ActionRun}, {Label: "🛑 Stop", Action: ActionStop}},
		{{Label: "🔍 Main", Action: ActionShowMain}, {Label: "ℹ️ Stats", Action: ActionStatus}},
		{{Label: "✏️ Withdraw Addr", Action: ActionSetWithdraw}},
		{{Label: "💸 Sell All", Action: ActionSellAll}, {Label: "🏦 Confirm WD", Action: ActionConfirmWithdraw}},
	}
}
