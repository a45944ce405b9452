// Package taskdef renders the gateway's ECS task definition from the loaded
// settings. The rendered document is written to the working directory as a
// transient JSON artifact (handy for inspection and for parity with what the
// ECS API receives) and registered through the API; the artifact is removed
// on teardown.
package taskdef

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"github.com/CheikhSambaM/ib-gateway-docker/internal/cloud/naming"
	"github.com/CheikhSambaM/ib-gateway-docker/internal/models"
)

// KeyValue is one container environment entry.
type KeyValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PortMapping is one exposed container port.
type PortMapping struct {
	ContainerPort int32  `json:"containerPort"`
	Protocol      string `json:"protocol"`
}

// LogConfiguration routes container stdout to CloudWatch Logs.
type LogConfiguration struct {
	LogDriver string            `json:"logDriver"`
	Options   map[string]string `json:"options"`
}

// ContainerDefinition describes the single gateway container.
type ContainerDefinition struct {
	Name             string           `json:"name"`
	Image            string           `json:"image"`
	Essential        bool             `json:"essential"`
	PortMappings     []PortMapping    `json:"portMappings"`
	Environment      []KeyValue       `json:"environment"`
	LogConfiguration LogConfiguration `json:"logConfiguration"`
}

// Definition mirrors the register-task-definition document.
type Definition struct {
	Family                  string                `json:"family"`
	NetworkMode             string                `json:"networkMode"`
	RequiresCompatibilities []string              `json:"requiresCompatibilities"`
	CPU                     string                `json:"cpu"`
	Memory                  string                `json:"memory"`
	ExecutionRoleArn        string                `json:"executionRoleArn"`
	ContainerDefinitions    []ContainerDefinition `json:"containerDefinitions"`
}

// Options tweak the rendered definition beyond the settings file.
type Options struct {
	// Verbose injects the gateway trace environment and a display-server
	// password placeholder so a VNC session can be attached for debugging.
	Verbose bool
	// ExecutionRoleArn is the task execution role used to pull the image
	// and write logs. Resolved from the caller's account.
	ExecutionRoleArn string
	// Region for the awslogs driver.
	Region string
}

// Render builds the task definition document from settings.
func Render(s *models.Settings, opts Options) *Definition {
	env := []KeyValue{
		{Name: "TWS_USERID", Value: s.UserID},
		{Name: "TWS_PASSWORD", Value: s.Password},
		{Name: "TRADING_MODE", Value: s.TradingMode},
		{Name: "READ_ONLY_API", Value: yesNo(s.ReadOnlyAPI)},
		{Name: "TWOFA_TIMEOUT_ACTION", Value: s.TwoFATimeoutAction},
		{Name: "TIME_ZONE", Value: s.TimeZone},
	}
	if s.AutoRestartTime != "" {
		env = append(env, KeyValue{Name: "AUTO_RESTART_TIME", Value: s.AutoRestartTime})
	}
	if s.VNCPassword != "" {
		env = append(env, KeyValue{Name: "VNC_SERVER_PASSWORD", Value: s.VNCPassword})
	}
	if opts.Verbose {
		env = append(env, KeyValue{Name: "IBC_TRACE", Value: "yes"})
		if s.VNCPassword == "" {
			env = append(env, KeyValue{Name: "VNC_SERVER_PASSWORD", Value: "changeMeVNC"})
		}
	}

	ports := make([]PortMapping, 0, 2)
	for _, p := range naming.GatewayPorts() {
		ports = append(ports, PortMapping{ContainerPort: p, Protocol: "tcp"})
	}

	return &Definition{
		Family:                  naming.TaskFamily,
		NetworkMode:             "awsvpc",
		RequiresCompatibilities: []string{"FARGATE"},
		CPU:                     s.CPU,
		Memory:                  s.Memory,
		ExecutionRoleArn:        opts.ExecutionRoleArn,
		ContainerDefinitions: []ContainerDefinition{{
			Name:         naming.ContainerName,
			Image:        s.Image,
			Essential:    true,
			PortMappings: ports,
			Environment:  env,
			LogConfiguration: LogConfiguration{
				LogDriver: "awslogs",
				Options: map[string]string{
					"awslogs-group":         naming.LogGroup,
					"awslogs-region":        opts.Region,
					"awslogs-stream-prefix": "ecs",
				},
			},
		}},
	}
}

// JSON returns the indented document as registered with ECS.
func (d *Definition) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// WriteArtifact writes the transient JSON document into dir and returns its path.
func (d *Definition) WriteArtifact(dir string) (string, error) {
	data, err := d.JSON()
	if err != nil {
		return "", fmt.Errorf("failed to marshal task definition: %w", err)
	}
	path := filepath.Join(dir, naming.TaskDefinitionFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write task definition artifact: %w", err)
	}
	return path, nil
}

// RemoveArtifact deletes the transient document if present.
func RemoveArtifact(dir string) error {
	err := os.Remove(filepath.Join(dir, naming.TaskDefinitionFile))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// RegisterInput converts the document into the typed ECS API call.
func (d *Definition) RegisterInput() *ecs.RegisterTaskDefinitionInput {
	containers := make([]ecstypes.ContainerDefinition, 0, len(d.ContainerDefinitions))
	for _, c := range d.ContainerDefinitions {
		ports := make([]ecstypes.PortMapping, 0, len(c.PortMappings))
		for _, p := range c.PortMappings {
			ports = append(ports, ecstypes.PortMapping{
				ContainerPort: aws.Int32(p.ContainerPort),
				Protocol:      ecstypes.TransportProtocol(p.Protocol),
			})
		}
		env := make([]ecstypes.KeyValuePair, 0, len(c.Environment))
		for _, kv := range c.Environment {
			env = append(env, ecstypes.KeyValuePair{Name: aws.String(kv.Name), Value: aws.String(kv.Value)})
		}
		containers = append(containers, ecstypes.ContainerDefinition{
			Name:         aws.String(c.Name),
			Image:        aws.String(c.Image),
			Essential:    aws.Bool(c.Essential),
			PortMappings: ports,
			Environment:  env,
			LogConfiguration: &ecstypes.LogConfiguration{
				LogDriver: ecstypes.LogDriver(c.LogConfiguration.LogDriver),
				Options:   c.LogConfiguration.Options,
			},
		})
	}

	compat := make([]ecstypes.Compatibility, 0, len(d.RequiresCompatibilities))
	for _, rc := range d.RequiresCompatibilities {
		compat = append(compat, ecstypes.Compatibility(rc))
	}

	return &ecs.RegisterTaskDefinitionInput{
		Family:                  aws.String(d.Family),
		NetworkMode:             ecstypes.NetworkMode(d.NetworkMode),
		RequiresCompatibilities: compat,
		Cpu:                     aws.String(d.CPU),
		Memory:                  aws.String(d.Memory),
		ExecutionRoleArn:        aws.String(d.ExecutionRoleArn),
		ContainerDefinitions:    containers,
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
