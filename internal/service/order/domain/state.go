// internal/service/order/domain/state.go
package domain

// State 定义了订单的生命周期状态
type State string

const (
	StatePending   State = "PENDING"   // 库存已预占，订单已落库
	StateConfirmed State = "CONFIRMED" // 已确认（支付完成）
	StateShipped   State = "SHIPPED"   // 已发货
	StateDelivered State = "DELIVERED" // 已签收
	StateCancelled State = "CANCELLED" // 已取消
)

// 允许的状态流转
var transitions = map[State][]State{
	StatePending:   {StateConfirmed, StateCancelled},
	StateConfirmed: {StateShipped, StateCancelled},
	StateShipped:   {StateDelivered},
}

// ParseState 校验外部传入的状态值。
func ParseState(s string) (State, error) {
	switch st := State(s); st {
	case StatePending, StateConfirmed, StateShipped, StateDelivered, StateCancelled:
		return st, nil
	default:
		return "", ErrInvalidState
	}
}

// CanTransitionTo 判断是否可以从当前状态流转到 next。
func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
