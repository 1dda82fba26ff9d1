package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"liyu1981.xyz/plant-care-service/pkg/common"
	plantGrpc "liyu1981.xyz/plant-care-service/pkg/grpc"
	plantHttp "liyu1981.xyz/plant-care-service/pkg/http"
	"liyu1981.xyz/plant-care-service/pkg/models"
)

var maxPlants int = 1000
var httpHostPort string = "127.0.0.1:1080"
var grpcHostPort string = "127.0.0.1:10801"

var grpcClient *plantGrpc.PlantCareClient

var rnd *rand.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
var rndMu sync.Mutex

type plant struct {
	id       string
	moisture string
	light    string
}

func main() {
	plants := make([]plant, maxPlants)
	for i := range maxPlants {
		id := uuid.NewString()
		plants[i] = plant{id: "plant-" + id, moisture: "soil-" + id, light: "lux-" + id}
	}
	fmt.Printf("generated %v plants with 2 sensors each\n", maxPlants)

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", httpHostPort))
	if err != nil {
		log.Fatal("Failed to connect to HTTP server:", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatal("HTTP server not available")
	}

	fmt.Printf("http server verified\n")

	conn, err := grpc.Dial(grpcHostPort, grpc.WithInsecure())
	if err != nil {
		log.Fatal("Failed to connect to gRPC server:", err)
	}
	defer conn.Close()
	grpcClient = plantGrpc.NewPlantCareClient(conn)

	fmt.Printf("gRPC server verified and connected\n")

	var startTime time.Time
	var usedTime time.Duration

	startTime = time.Now()
	putConfig(plants)
	usedTime = time.Since(startTime)
	fmt.Printf("applied snapshot with %v plants: used time=%v seconds\n", maxPlants, usedTime.Seconds())

	startTime = time.Now()
	wg := sync.WaitGroup{}
	for i := range maxPlants {
		wg.Add(1)
		go func() {
			doAction(plants[i])
			wg.Done()
		}()
	}
	wg.Wait()
	usedTime = time.Since(startTime)

	fmt.Printf(
		"\n\rdid actions for %v plants: used time=%v seconds, throughput=%v action/second\n",
		maxPlants, usedTime.Seconds(), float64(maxPlants*3)/usedTime.Seconds(),
	)
}

func flipCoin() bool {
	rndMu.Lock()
	defer rndMu.Unlock()
	return rnd.Int31n(100000)%2 == 0
}

func rndFloat64(min, max float64, decimal int) float64 {
	rndMu.Lock()
	val := min + rnd.Float64()*(max-min)
	rndMu.Unlock()
	multiplier := float64(math.Pow10(decimal))
	return float64(math.Round(float64(val)*float64(multiplier))) / multiplier
}

func adminToken() string {
	_ = godotenv.Load()
	secret := os.Getenv(common.EnvKeyPlantJwtSecret)
	if secret == "" {
		log.Fatal("PLANT_JWT_SECRET must be set to apply the benchmark snapshot")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, plantHttp.Claims{
		Role: plantHttp.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "sensor1k",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		log.Fatal("Failed to sign token:", err)
	}
	return signed
}

func putConfig(plants []plant) {
	snap := models.Snapshot{Version: "sensor1k-" + uuid.NewString()}
	for _, p := range plants {
		snap.Plants = append(snap.Plants, models.PlantConfig{
			ID: p.id,
			Sensors: map[models.MetricKind]string{
				models.MetricMoisture:    p.moisture,
				models.MetricIlluminance: p.light,
			},
			Bounds: map[models.MetricKind]models.Bound{
				models.MetricMoisture: {Min: models.Float(15), Max: models.Float(70)},
			},
			DLI: &models.Bound{Min: models.Float(6), Max: models.Float(30)},
		})
	}

	jsonData, _ := json.Marshal(snap)
	req, _ := http.NewRequest(http.MethodPut, fmt.Sprintf("http://%s/config", httpHostPort), bytes.NewBuffer(jsonData))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminToken())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal("Failed to apply snapshot:", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("snapshot rejected: %v", resp.Status)
	}
}

func doAction(p plant) {
	actions := []func(){
		genPostReadingAction(p.moisture, models.MetricMoisture, "%", 0, 100),
		genPostReadingAction(p.light, models.MetricIlluminance, "lx", 0, 60000),
		genGetStatesAction(p.id),
	}
	actionNames := []string{
		"PostMoisture",
		"PostIlluminance",
		"GetStates",
	}
	rndMu.Lock()
	rnd.Shuffle(len(actions), func(i, j int) {
		actions[i], actions[j] = actions[j], actions[i]
		actionNames[i], actionNames[j] = actionNames[j], actionNames[i]
	})
	pause := make([]time.Duration, len(actions))
	for i := range pause {
		pause[i] = time.Duration(100+rnd.Int31n(1000)) * time.Millisecond
	}
	rndMu.Unlock()
	for index, action := range actions {
		action()
		fmt.Printf("\rexecuted action %v for plant %v", actionNames[index], p.id)
		time.Sleep(pause[index])
	}
}

func genPostReadingAction(sensorID string, kind models.MetricKind, unit string, min, max float64) func() {
	return func() {
		useHttp := flipCoin()

		v := rndFloat64(min, max, 2)
		now := time.Now()

		if useHttp {
			payload := map[string]any{
				"kind":      string(kind),
				"value":     v,
				"unit":      unit,
				"timestamp": now.Format(time.RFC3339),
			}
			jsonData, _ := json.Marshal(payload)
			resp, err := http.Post(fmt.Sprintf("http://%s/sensors/%s/readings", httpHostPort, sensorID), "application/json", bytes.NewBuffer(jsonData))
			if err != nil {
				fmt.Printf("\nerror: %v\n", err)
				return
			}
			defer resp.Body.Close()
		} else {
			req, _ := structpb.NewStruct(map[string]any{
				"sensor_id": sensorID,
				"kind":      string(kind),
				"value":     v,
				"unit":      unit,
				"timestamp": now.Format(time.RFC3339),
			})
			resp, err := grpcClient.PostReading(context.Background(), req)
			if err != nil {
				fmt.Printf("\nerror: %v\n", err)
				return
			}
			if !resp.GetFields()["success"].GetBoolValue() {
				fmt.Printf("\nresponse success = false: %v\n", resp)
			}
		}
	}
}

func genGetStatesAction(plantID string) func() {
	return func() {
		useHttp := flipCoin()

		if useHttp {
			resp, err := http.Get(fmt.Sprintf("http://%s/entities/%s/states", httpHostPort, plantID))
			if err != nil {
				fmt.Printf("\nerror: %v\n", err)
				return
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				fmt.Printf("\nresponse status code != 200: %v\n", resp)
			}
		} else {
			req, _ := structpb.NewStruct(map[string]any{"entity_id": plantID})
			resp, err := grpcClient.GetStates(context.Background(), req)
			if err != nil {
				fmt.Printf("\nerror: %v\n", err)
				return
			}
			if !resp.GetFields()["success"].GetBoolValue() {
				fmt.Printf("\nresponse success = false: %v\n", resp)
			}
		}
	}
}
