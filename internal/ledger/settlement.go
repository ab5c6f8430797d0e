package ledger

import "github.com/shopspring/decimal"

// Complement é a função total de "palpite oposto": HOME<->AWAY; qualquer outra
// selection (DRAW, DIRECT) mapeia para DRAW.
func Complement(s Selection) Selection {
	switch s {
	case SelectionHome:
		return SelectionAway
	case SelectionAway:
		return SelectionHome
	default:
		return SelectionDraw
	}
}

// ResolveAcceptorSelection materializa o palpite do aceitante: o placeholder
// OPPOSITE (ou vazio) vira o complemento do palpite do criador.
func ResolveAcceptorSelection(creator, stored Selection) Selection {
	if stored == "" || stored == SelectionOpposite {
		return Complement(creator)
	}
	return stored
}

// DecideOutcome determina o resultado do match. O criador é avaliado primeiro;
// se nenhum palpite bate com o resultado real, o match é PUSH (reembolso).
func DecideOutcome(creatorSel, acceptorSel, actual Selection) MatchResult {
	if creatorSel == actual {
		return ResultCreatorWin
	}
	if acceptorSel == actual {
		return ResultAcceptorWin
	}
	return ResultPush
}

// SettlementPlan é o plano financeiro de uma liquidação, calculado de forma
// pura antes de qualquer escrita no banco.
type SettlementPlan struct {
	Result MatchResult
	Pool   decimal.Decimal
	Fee    decimal.Decimal // zero em PUSH
	Payout decimal.Decimal // zero em PUSH; pool - fee caso contrário
}

// PlanSettlement computa resultado, taxa e payout de um match.
// A taxa é pool*feeRate arredondada (banker's) para 2 casas; o payout é
// pool-fee, então pool == payout+fee vale exato em qualquer entrada.
func PlanSettlement(creatorSel, acceptorSel, actual Selection, creatorAmount, acceptorAmount, feeRate decimal.Decimal) SettlementPlan {
	pool := creatorAmount.Add(acceptorAmount)
	result := DecideOutcome(creatorSel, ResolveAcceptorSelection(creatorSel, acceptorSel), actual)
	if result == ResultPush {
		return SettlementPlan{Result: result, Pool: pool, Fee: decimal.Zero, Payout: decimal.Zero}
	}
	fee := pool.Mul(feeRate).RoundBank(2)
	return SettlementPlan{Result: result, Pool: pool, Fee: fee, Payout: pool.Sub(fee)}
}
