package taskdef

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CheikhSambaM/ib-gateway-docker/internal/cloud/naming"
	"github.com/CheikhSambaM/ib-gateway-docker/internal/models"
)

func testSettings() *models.Settings {
	s := &models.Settings{
		UserID:      "trader1",
		Password:    "hunter2",
		TradingMode: "paper",
		ReadOnlyAPI: true,
	}
	s.ApplyDefaults()
	return s
}

func envValue(d *Definition, name string) (string, bool) {
	for _, kv := range d.ContainerDefinitions[0].Environment {
		if kv.Name == name {
			return kv.Value, true
		}
	}
	return "", false
}

func TestRender_Basics(t *testing.T) {
	d := Render(testSettings(), Options{ExecutionRoleArn: "arn:aws:iam::123456789012:role/ecsTaskExecutionRole", Region: "eu-west-1"})

	if d.Family != naming.TaskFamily {
		t.Errorf("Family = %q, want %q", d.Family, naming.TaskFamily)
	}
	if d.NetworkMode != "awsvpc" {
		t.Errorf("NetworkMode = %q, want awsvpc", d.NetworkMode)
	}
	if len(d.RequiresCompatibilities) != 1 || d.RequiresCompatibilities[0] != "FARGATE" {
		t.Errorf("RequiresCompatibilities = %v", d.RequiresCompatibilities)
	}
	if len(d.ContainerDefinitions) != 1 {
		t.Fatalf("expected one container, got %d", len(d.ContainerDefinitions))
	}

	c := d.ContainerDefinitions[0]
	if c.Name != naming.ContainerName {
		t.Errorf("container name = %q", c.Name)
	}
	if len(c.PortMappings) != 2 || c.PortMappings[0].ContainerPort != 4003 || c.PortMappings[1].ContainerPort != 4004 {
		t.Errorf("port mappings = %v", c.PortMappings)
	}
	if c.LogConfiguration.Options["awslogs-group"] != naming.LogGroup {
		t.Errorf("awslogs-group = %q", c.LogConfiguration.Options["awslogs-group"])
	}
	if c.LogConfiguration.Options["awslogs-region"] != "eu-west-1" {
		t.Errorf("awslogs-region = %q", c.LogConfiguration.Options["awslogs-region"])
	}

	if v, _ := envValue(d, "TWS_USERID"); v != "trader1" {
		t.Errorf("TWS_USERID = %q", v)
	}
	if v, _ := envValue(d, "READ_ONLY_API"); v != "yes" {
		t.Errorf("READ_ONLY_API = %q, want yes", v)
	}
	if _, found := envValue(d, "IBC_TRACE"); found {
		t.Error("IBC_TRACE must not be set without Verbose")
	}
	if _, found := envValue(d, "AUTO_RESTART_TIME"); found {
		t.Error("AUTO_RESTART_TIME must be omitted when unset")
	}
}

func TestRender_VerboseInjectsDebugEnv(t *testing.T) {
	d := Render(testSettings(), Options{Verbose: true, Region: "us-east-1"})

	if v, found := envValue(d, "IBC_TRACE"); !found || v != "yes" {
		t.Errorf("IBC_TRACE = %q, found=%v", v, found)
	}
	// Placeholder only when the settings carry no VNC password.
	if v, found := envValue(d, "VNC_SERVER_PASSWORD"); !found || v == "" {
		t.Error("expected VNC_SERVER_PASSWORD placeholder in verbose mode")
	}

	s := testSettings()
	s.VNCPassword = "already-set"
	d = Render(s, Options{Verbose: true, Region: "us-east-1"})
	if v, _ := envValue(d, "VNC_SERVER_PASSWORD"); v != "already-set" {
		t.Errorf("VNC_SERVER_PASSWORD = %q, want already-set", v)
	}
}

// The JSON document is shown to the operator (update --dry-run) and written
// as the artifact; both must carry the declared field order, not an
// alphabetical re-sort.
func TestJSONKeepsFieldOrder(t *testing.T) {
	d := Render(testSettings(), Options{Region: "us-east-1"})
	data, err := d.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	doc := string(data)

	order := []string{`"family"`, `"networkMode"`, `"requiresCompatibilities"`, `"cpu"`, `"memory"`, `"containerDefinitions"`}
	last := -1
	for _, key := range order {
		idx := strings.Index(doc, key)
		if idx < 0 {
			t.Fatalf("key %s missing from document", key)
		}
		if idx < last {
			t.Errorf("key %s out of order", key)
		}
		last = idx
	}
}

func TestWriteAndRemoveArtifact(t *testing.T) {
	dir := t.TempDir()
	d := Render(testSettings(), Options{Region: "us-east-1"})

	path, err := d.WriteArtifact(dir)
	if err != nil {
		t.Fatalf("WriteArtifact: %v", err)
	}
	if filepath.Base(path) != naming.TaskDefinitionFile {
		t.Errorf("artifact name = %q", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"family": "ib-gateway-paper"`) {
		t.Error("artifact JSON missing family")
	}

	if err := RemoveArtifact(dir); err != nil {
		t.Fatalf("RemoveArtifact: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("artifact still present after RemoveArtifact")
	}
	// Removing again is not an error.
	if err := RemoveArtifact(dir); err != nil {
		t.Errorf("second RemoveArtifact: %v", err)
	}
}

func TestRegisterInput(t *testing.T) {
	d := Render(testSettings(), Options{ExecutionRoleArn: "arn:aws:iam::123456789012:role/ecsTaskExecutionRole", Region: "us-east-1"})
	in := d.RegisterInput()

	if *in.Family != naming.TaskFamily {
		t.Errorf("Family = %q", *in.Family)
	}
	if string(in.NetworkMode) != "awsvpc" {
		t.Errorf("NetworkMode = %q", in.NetworkMode)
	}
	if len(in.ContainerDefinitions) != 1 {
		t.Fatalf("containers = %d", len(in.ContainerDefinitions))
	}
	c := in.ContainerDefinitions[0]
	if len(c.PortMappings) != 2 {
		t.Errorf("port mappings = %d", len(c.PortMappings))
	}
	if c.LogConfiguration == nil || string(c.LogConfiguration.LogDriver) != "awslogs" {
		t.Error("expected awslogs log configuration")
	}
}
