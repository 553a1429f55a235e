package conversation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ecristovao/pagbot/internal/money"
	"github.com/ecristovao/pagbot/internal/orders"
)

// User-facing copy. Kept together so the tone stays consistent.

const (
	msgGreeting = "Olá! 👋 Para pagar sua conta, me diga o número da comanda. Por exemplo: \"pagar comanda 42\"."

	msgOrderLookupDelay = "Estamos localizando sua comanda, está demorando um pouco mais que o normal. Só um instante… ⏳"
	msgOrderNotFound    = "Não consegui localizar sua comanda agora. 😔 Já avisei nossa equipe e um atendente vai te ajudar em instantes."

	msgConfirmPrompt = "Confere? 😊"

	msgIncompleteOrder = "Entendi! Vou chamar um atendente para revisar sua comanda. Obrigado pela paciência! 🙏"

	msgSplitPrompt       = "Deseja dividir a conta com mais alguém?"
	msgSplitNumberPrompt = "Entre quantas pessoas vamos dividir? (incluindo você)"
	msgSplitNumberAgain  = "Preciso de um número maior que 1. Entre quantas pessoas vamos dividir?"

	msgContactsOnly = "Para dividir a conta, me envie as outras pessoas como cartões de contato (anexo → contato). 📇"

	msgTipPrompt      = "Deseja adicionar uma gorjeta extra? 💚"
	msgTipAgain       = "Não entendi a porcentagem. Responda com 3, 5, 7 ou \"não\"."
	msgExtractionDelay = "Estou lendo seu comprovante, um instante… ⏳"
	msgExtractionFail  = "Não consegui ler seu comprovante. 😔 Um atendente vai te ajudar a finalizar o pagamento."

	msgWaitingForProof = "Assim que fizer o PIX, me envie o comprovante por aqui. 📄"
	msgPaymentNudge    = "Oi! 👋 Vi que o pagamento ainda não chegou. Precisa de ajuda? Me envie o comprovante quando puder."

	msgDuplicateProof = "Esse comprovante já foi utilizado nesta conta. Se acha que é um engano, me envie outro comprovante ou peça ajuda a um atendente."

	msgInvalidBeneficiary = "O comprovante não está em nome do restaurante. 😕 Já chamei um atendente para verificar com você."

	msgPaymentConfirmed = "Pagamento confirmado! ✅ Muito obrigado!"

	msgAssistance = "Sem problemas! Um atendente já foi avisado e vai falar com você em instantes. 🙋"

	msgAbsorbed = "Nossa equipe já foi avisada, um atendente vai continuar seu atendimento por aqui. 🙏"

	msgFeedbackPrompt = "Antes de ir: de 0 a 10, qual a chance de você nos recomendar a um amigo?"
	msgFeedbackAgain  = "Me responda com uma nota de 0 a 10, por favor. 😊"
	msgFeedbackDetail = "Obrigado! O que podemos melhorar para chegar no 10?"
	msgGoodbye        = "Obrigado pela visita! Até a próxima! 👋"

	msgCardLinkFail = "Não consegui gerar o link de pagamento agora. Você ainda pode pagar por PIX, ou tente o cartão de novo em instantes."
)

func orderSummary(snap *orders.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Encontrei sua comanda %s! 🧾\n\n", snap.OrderID)
	for _, it := range snap.Items {
		fmt.Fprintf(&b, "%dx %s — %s\n", it.Quantity, it.Name, money.FormatBRL(it.Price))
	}
	if snap.Discount.IsPositive() {
		fmt.Fprintf(&b, "\nDesconto: -%s", money.FormatBRL(snap.Discount))
	}
	fmt.Fprintf(&b, "\nTotal: %s", money.FormatBRL(snap.EffectiveTotal()))
	return b.String()
}

func msgOrderBusy(midSplit bool) string {
	if midSplit {
		return "Essa comanda já está sendo paga em uma divisão de conta em andamento. Se você faz parte dela, aguarde a mensagem com a sua parte. 😉"
	}
	return "Essa comanda já está sendo paga por outra pessoa. Se precisar, chame um atendente. 😉"
}

func msgSplitTooMany(max int) string {
	return fmt.Sprintf("Esse número passou do meu limite! 😅 Consigo dividir entre até %d pessoas.", max)
}

func msgContactsNeeded(n int) string {
	if n == 1 {
		return "Falta 1 contato. Me envie como cartão de contato. 📇"
	}
	return fmt.Sprintf("Faltam %d contatos. Me envie como cartões de contato. 📇", n)
}

func msgContactsTruncated(kept, extra int) string {
	return fmt.Sprintf("Recebi contatos a mais: vou considerar apenas os %d primeiros (%d ignorados).", kept, extra)
}

func msgSplitReady(share decimal.Decimal) string {
	return fmt.Sprintf("Prontinho! Avisei todo mundo. A sua parte ficou em %s. 🎉", money.FormatBRL(share))
}

func msgSplitInvite(name string, orderID string, share decimal.Decimal) string {
	first := strings.Fields(name)
	n := name
	if len(first) > 0 {
		n = first[0]
	}
	return fmt.Sprintf("Olá, %s! 👋 Sua parte na comanda %s do Empório Cristóvão ficou em %s.", n, orderID, money.FormatBRL(share))
}

func msgPixInstructions(pixKey string, amount decimal.Decimal) []Directive {
	return []Directive{
		textMsg(fmt.Sprintf("Sua conta ficou em %s. Você pode pagar por PIX usando a chave abaixo. 🔑", money.FormatBRL(amount))),
		// The key goes alone in its own message so it is easy to copy.
		textMsg(pixKey),
		buttonsMsg(msgWaitingForProof, Button{ID: btnPayCard, Title: "Pagar com cartão"}),
	}
}

func msgOverpaid(excess decimal.Decimal) string {
	return fmt.Sprintf("Recebi seu pagamento, mas veio %s acima do valor da conta. O que prefere fazer com a diferença?", money.FormatBRL(excess))
}

func msgUnderpaid(remaining decimal.Decimal) string {
	return fmt.Sprintf("Recebi seu pagamento! Ainda faltam %s para completar a conta. Como prefere seguir?", money.FormatBRL(remaining))
}

func msgExcessAsTip(excess decimal.Decimal) string {
	return fmt.Sprintf("Que gentileza! 💚 Os %s ficam como gorjeta para a equipe. Muito obrigado!", money.FormatBRL(excess))
}

func msgRefundRequested(excess decimal.Decimal) string {
	return fmt.Sprintf("Combinado! Nossa equipe vai providenciar o reembolso de %s. ✅", money.FormatBRL(excess))
}

func tipButtons() Directive {
	return buttonsMsg(msgTipPrompt,
		Button{ID: btnTip3, Title: "3%"},
		Button{ID: btnTip5, Title: "5%"},
		Button{ID: btnTipNone, Title: "Sem gorjeta"},
	)
}

func confirmButtons(text string) Directive {
	return buttonsMsg(text,
		Button{ID: btnConfirmYes, Title: "Sim, confere"},
		Button{ID: btnConfirmNo, Title: "Não confere"},
	)
}

func splitButtons() Directive {
	return buttonsMsg(msgSplitPrompt,
		Button{ID: btnSplitYes, Title: "Sim, dividir"},
		Button{ID: btnSplitNo, Title: "Não, pago tudo"},
	)
}

func overpaymentButtons(excess decimal.Decimal) Directive {
	return buttonsMsg(msgOverpaid(excess),
		Button{ID: btnExcessTip, Title: "Deixar de gorjeta"},
		Button{ID: btnExcessRefund, Title: "Quero reembolso"},
	)
}

func underpaymentButtons(remaining decimal.Decimal) Directive {
	return buttonsMsg(msgUnderpaid(remaining),
		Button{ID: btnPayRemaining, Title: "Pagar o restante"},
		Button{ID: btnAssistance, Title: "Falar c/ atendente"},
	)
}
