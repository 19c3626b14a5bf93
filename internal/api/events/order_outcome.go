package events

import (
	"encoding/json"
	"errors"
)

// TopicOrderCreated 承载订单创建结果，key 为 orderId。
const TopicOrderCreated = "order.created"

// OrderOutcome 是订单服务对每次下单尝试发布的唯一结果事件。
type OrderOutcome struct {
	OrderID string `json:"orderId"`
	UserID  string `json:"userId"`
	Success bool   `json:"success"`
}

var ErrMalformedOutcome = errors.New("malformed order outcome")

// DecodeOrderOutcome 解析消息体；缺少 orderId 的消息永远无法处理，归为格式错误。
func DecodeOrderOutcome(raw []byte) (OrderOutcome, error) {
	var ev OrderOutcome
	if err := json.Unmarshal(raw, &ev); err != nil {
		return ev, errors.Join(ErrMalformedOutcome, err)
	}
	if ev.OrderID == "" {
		return ev, errors.Join(ErrMalformedOutcome, errors.New("orderId is required"))
	}
	return ev, nil
}
