package rabbitmq

// Exchange единственный exchange сервиса.
const Exchange = "mail"

// Ключи маршрутизации и очереди исходящих писем.
const (
	RoutingKeyEmail = "email"
	QueueEmail      = "email.outgoing"
)

// QueueConfig очередь и её ключ маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetMailQueues возвращает очереди, которые объявляют и API, и воркер рассылки.
func GetMailQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: QueueEmail, RoutingKey: RoutingKeyEmail},
	}
}
