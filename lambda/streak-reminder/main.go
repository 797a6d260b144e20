// Command streak-reminder runs on an EventBridge schedule and leaves an
// in-app reminder for users about to lose their check-in streak.
package main

import (
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/thermabackend/internal/api"
	"github.com/thermabackend/internal/bootstrap"
)

var handler *api.Handler

func init() {
	handler = bootstrap.MustHandler()
}

func main() {
	lambda.Start(handler.StreakReminder)
}
