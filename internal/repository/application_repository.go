package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"github.com/sevasetu/sevasetu/internal/domain"
	"github.com/sevasetu/sevasetu/internal/models"
)

const conditionalCheckFailed = "ConditionalCheckFailed"

// ApplicationRepository persists applications in a single DynamoDB table.
// Item layout:
//
//	APP#<reference>  / METADATA — the application record
//	ACTIVE#<fp>      / METADATA — active-identity marker for duplicate guarding
//	CONF#<id>        / METADATA — applied-confirmation marker
type ApplicationRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *logrus.Logger
}

func NewApplicationRepository(client *dynamodb.Client, tableName string, logger *logrus.Logger) *ApplicationRepository {
	return &ApplicationRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func appKey(reference string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("APP#%s", reference)},
		"SK": &types.AttributeValueMemberS{Value: "METADATA"},
	}
}

func markerKey(fingerprint string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("ACTIVE#%s", fingerprint)},
		"SK": &types.AttributeValueMemberS{Value: "METADATA"},
	}
}

func confirmationKey(confirmationID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("CONF#%s", confirmationID)},
		"SK": &types.AttributeValueMemberS{Value: "METADATA"},
	}
}

func (r *ApplicationRepository) marshalApplication(app *models.Application) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(app)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal application: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: app.GetPK()}
	item["SK"] = &types.AttributeValueMemberS{Value: app.GetSK()}
	return item, nil
}

// Create writes the application and its active-identity marker in one
// transaction. Both puts are guarded so a reference collision and a duplicate
// submission are told apart by which condition failed.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	item, err := r.marshalApplication(app)
	if err != nil {
		return err
	}

	marker := markerKey(app.IdentityFingerprint)
	marker["Reference"] = &types.AttributeValueMemberS{Value: app.Reference}
	marker["CreatedAt"] = &types.AttributeValueMemberS{Value: app.SubmittedAt.Format(time.RFC3339)}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(r.tableName),
					Item:                item,
					ConditionExpression: aws.String("attribute_not_exists(PK)"),
				},
			},
			{
				Put: &types.Put{
					TableName:           aws.String(r.tableName),
					Item:                marker,
					ConditionExpression: aws.String("attribute_not_exists(PK)"),
				},
			},
		},
	})

	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			if reasonFailed(canceled, 0) {
				return domain.ErrReferenceTaken
			}
			if reasonFailed(canceled, 1) {
				existing, lookupErr := r.ActiveReference(ctx, app.IdentityFingerprint)
				if lookupErr != nil {
					existing = ""
				}
				return &domain.ConflictError{ExistingReference: existing}
			}
		}
		r.logger.WithError(err).Error("Failed to create application in DynamoDB")
		return domain.NewStoreError("create application", err)
	}

	return nil
}

func (r *ApplicationRepository) Get(ctx context.Context, reference string) (*models.Application, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       appKey(reference),
	})

	if err != nil {
		return nil, domain.NewStoreError("get application", err)
	}

	if result.Item == nil {
		return nil, domain.ErrNotFound
	}

	var app models.Application
	if err := attributevalue.UnmarshalMap(result.Item, &app); err != nil {
		return nil, fmt.Errorf("failed to unmarshal application: %w", err)
	}

	return &app, nil
}

// Update rewrites the application conditionally on the stored status still
// being expectedStatus. A transition into rejected also clears the
// active-identity marker so the citizen may submit afresh.
func (r *ApplicationRepository) Update(ctx context.Context, app *models.Application, expectedStatus models.Status) error {
	item, err := r.marshalApplication(app)
	if err != nil {
		return err
	}

	put := &types.Put{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("application_status = :expected"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberS{Value: string(expectedStatus)},
		},
	}

	if app.Status == models.StatusRejected {
		_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: []types.TransactWriteItem{
				{Put: put},
				{
					Delete: &types.Delete{
						TableName: aws.String(r.tableName),
						Key:       markerKey(app.IdentityFingerprint),
					},
				},
			},
		})
	} else {
		_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:                 put.TableName,
			Item:                      put.Item,
			ConditionExpression:       put.ConditionExpression,
			ExpressionAttributeValues: put.ExpressionAttributeValues,
		})
	}

	if err != nil {
		if conditionLost(err) {
			return domain.ErrConcurrentUpdate
		}
		r.logger.WithError(err).Error("Failed to update application in DynamoDB")
		return domain.NewStoreError("update application", err)
	}

	return nil
}

// ActiveReference returns the reference held by the active-identity marker,
// or "" when the identity has no live application.
func (r *ApplicationRepository) ActiveReference(ctx context.Context, fingerprint string) (string, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       markerKey(fingerprint),
	})

	if err != nil {
		return "", domain.NewStoreError("get active marker", err)
	}

	if result.Item == nil {
		return "", nil
	}

	ref, ok := result.Item["Reference"].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("active marker has no reference attribute")
	}

	return ref.Value, nil
}

// ApplyConfirmation records the confirmation id and rewrites the application
// as one transaction: the marker put fails when the id was seen before, the
// application put fails when the status moved underneath us.
func (r *ApplicationRepository) ApplyConfirmation(ctx context.Context, confirmationID string, app *models.Application, expectedStatus models.Status) error {
	item, err := r.marshalApplication(app)
	if err != nil {
		return err
	}

	marker := confirmationKey(confirmationID)
	marker["Reference"] = &types.AttributeValueMemberS{Value: app.Reference}
	marker["AppliedAt"] = &types.AttributeValueMemberS{Value: app.UpdatedAt.Format(time.RFC3339)}

	items := []types.TransactWriteItem{
		{
			Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                marker,
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			},
		},
		{
			Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                item,
				ConditionExpression: aws.String("application_status = :expected"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":expected": &types.AttributeValueMemberS{Value: string(expectedStatus)},
				},
			},
		},
	}

	if app.Status == models.StatusRejected {
		items = append(items, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key:       markerKey(app.IdentityFingerprint),
			},
		})
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})

	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			if reasonFailed(canceled, 0) {
				return domain.ErrAlreadyFinalized
			}
			if reasonFailed(canceled, 1) {
				return domain.ErrConcurrentUpdate
			}
		}
		r.logger.WithError(err).Error("Failed to apply confirmation in DynamoDB")
		return domain.NewStoreError("apply confirmation", err)
	}

	return nil
}

// ConfirmationApplied reports whether a marker exists for confirmationID.
func (r *ApplicationRepository) ConfirmationApplied(ctx context.Context, confirmationID string) (bool, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       confirmationKey(confirmationID),
	})

	if err != nil {
		return false, domain.NewStoreError("get confirmation marker", err)
	}

	return result.Item != nil, nil
}

func reasonFailed(canceled *types.TransactionCanceledException, index int) bool {
	if index >= len(canceled.CancellationReasons) {
		return false
	}
	reason := canceled.CancellationReasons[index]
	return reason.Code != nil && *reason.Code == conditionalCheckFailed
}

// conditionLost reports whether err is a failed conditional write, either
// directly or as the first item of a canceled transaction. The conditional
// put always sits at index 0 of the transactions built here.
func conditionLost(err error) bool {
	var conditionFailed *types.ConditionalCheckFailedException
	if errors.As(err, &conditionFailed) {
		return true
	}
	var canceled *types.TransactionCanceledException
	return errors.As(err, &canceled) && reasonFailed(canceled, 0)
}
