package message

import (
	"strconv"

	"streambot/internal/app/adapters/metrics"
	"streambot/internal/app/domain/message"
	"streambot/internal/app/domain/template"
	"streambot/internal/app/infrastructure/config"
)

func (r *Router) balance(cfg *config.Config, msg *message.ChatMessage, args []string) {
	target := msg.Sender
	if len(args) >= 2 {
		target = targetName(args[1])
	}

	r.chat.Send(template.Fill(cfg.Points.Messages.Balance, map[string]string{
		"user":    target,
		"balance": strconv.Itoa(r.ledger.Get(target)),
	}))
}

func (r *Router) give(cfg *config.Config, msg *message.ChatMessage, name string, args []string) {
	pm := cfg.Points.Messages
	if len(args) < 3 {
		r.chat.Send(template.Fill(pm.UsageGive, map[string]string{"cmd_give": name}))
		return
	}

	to := targetName(args[1])
	amount, err := strconv.Atoi(args[2])
	if err != nil || amount < cfg.Points.MinTransfer {
		r.chat.Send(pm.TransferInvalid)
		return
	}

	if !r.ledger.Transfer(msg.Sender, to, amount) {
		r.chat.Send(template.Fill(pm.TransferFail, map[string]string{"from": msg.Sender}))
		return
	}

	metrics.PointsMutations.WithLabelValues("transfer").Inc()
	r.chat.Send(template.Fill(pm.TransferOK, map[string]string{
		"from":   msg.Sender,
		"to":     to,
		"amount": strconv.Itoa(amount),
	}))
	r.record("points.give", msg.Sender, to+" "+strconv.Itoa(amount))
}

func (r *Router) adminPoints(cfg *config.Config, msg *message.ChatMessage, name string, add bool, args []string) {
	if !msg.Permissions.IsStaff() {
		r.deny(msg, name)
		return
	}

	pm := cfg.Points.Messages
	if len(args) < 3 {
		r.chat.Send(template.Fill(pm.UsageAdmin, map[string]string{"cmd": name}))
		return
	}

	target := targetName(args[1])
	amount, err := strconv.Atoi(args[2])
	if err != nil {
		r.chat.Send(template.Fill(pm.UsageAdmin, map[string]string{"cmd": name}))
		return
	}

	tmpl, op := pm.SetOK, "set"
	var bal int
	if add {
		tmpl, op = pm.AddOK, "add"
		bal = r.ledger.Add(target, amount)
	} else {
		bal = r.ledger.Set(target, amount)
	}

	metrics.PointsMutations.WithLabelValues(op).Inc()
	r.chat.Send(template.Fill(tmpl, map[string]string{"target": target, "balance": strconv.Itoa(bal)}))
}
