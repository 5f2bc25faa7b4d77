package repository

import (
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
)

func TestConditionLost(t *testing.T) {
	assert.True(t, conditionLost(&types.ConditionalCheckFailedException{}))

	// A canceled transaction whose conditional put failed is a lost race,
	// whether it came from Update's rejected branch or ApplyConfirmation.
	canceled := &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String(conditionalCheckFailed)},
			{Code: aws.String("None")},
		},
	}
	assert.True(t, conditionLost(canceled))
	assert.True(t, conditionLost(fmt.Errorf("operation error DynamoDB: TransactWriteItems: %w", canceled)))

	conflicted := &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("TransactionConflict")},
		},
	}
	assert.False(t, conditionLost(conflicted))

	assert.False(t, conditionLost(assert.AnError))
}

func TestReasonFailed(t *testing.T) {
	canceled := &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("None")},
			{Code: aws.String(conditionalCheckFailed)},
		},
	}

	assert.False(t, reasonFailed(canceled, 0))
	assert.True(t, reasonFailed(canceled, 1))
	assert.False(t, reasonFailed(canceled, 2))
}
