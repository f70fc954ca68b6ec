package produce

import amqp "github.com/rabbitmq/amqp091-go"

type Produce struct {
	StitchService *StitchProduceService
}

var produceInstance *Produce

func InitProduce(channel *amqp.Channel) *Produce {
	if produceInstance != nil {
		return produceInstance
	}

	stitchService := InitStitchProduceService(channel)
	if stitchService == nil {
		panic("Failed to initialize Stitch produce service")
	}

	produceInstance = &Produce{
		StitchService: stitchService,
	}

	return produceInstance
}

func GetProduce() *Produce {
	if produceInstance == nil {
		panic("Produce not initialized. Call InitProduce() first.")
	}
	return produceInstance
}
