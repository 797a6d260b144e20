package main

import (
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/thermabackend/internal/api"
	"github.com/thermabackend/internal/bootstrap"
)

var handler *api.Handler

func init() {
	handler = bootstrap.MustHandler(bootstrap.WithCipher(), bootstrap.WithIdempotency(), bootstrap.WithQuota())
}

func main() {
	lambda.Start(handler.JournalEntry)
}
