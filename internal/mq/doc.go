// Package mq публикует события run в RabbitMQ.
//
// Структура:
//   - connection.go — соединение с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление topic exchange и опциональной очереди
//   - publisher.go  — конверт сообщения и публикация в exchange
//   - events.go     — асинхронный EventPublisher, подключаемый к run
//
// Типы сообщений (они же routing keys):
//   - run.started    — граф построен, run начинается
//   - step.started   — шаг передан воркеру
//   - step.finished  — шаг в терминальном состоянии
//   - run.finished   — итог run
//
// Exchange по умолчанию: smartchainflow.events (topic).
package mq
